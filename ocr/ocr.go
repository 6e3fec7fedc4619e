// Package ocr defines the image-to-text capability used for image messages.
//
// Backends implement Provider and register a factory so the backend can be
// picked by name from configuration:
//
//	reg := ocr.NewRegistry()
//	reg.RegisterFactory(vision.ProviderName, vision.Factory(tokens))
//	p, err := reg.Create("vision", settings)
//	ann, err := p.Execute(ctx, ocr.Request{Image: data})
package ocr

import (
	"github.com/hyodoblog/mojiokoshi-line-bot/provider"
)

// Request is one image to read.
type Request struct {
	// Image is the encoded image (JPEG/PNG as delivered by LINE).
	Image []byte
	// LanguageHints optionally narrows detection, e.g. ["ja"].
	LanguageHints []string
}

// Annotation is the text found in an image.
type Annotation struct {
	// Text is the full text, with line breaks as reported by the backend.
	Text string
	// Locale is the detected language, if reported.
	Locale string
}

// Provider reads text from an image. A nil Annotation with a nil error
// means the image has no text region.
type Provider = provider.RequestResponse[Request, *Annotation]

// NewRegistry creates a registry of OCR backend factories.
func NewRegistry() *provider.Registry[Provider] {
	return provider.NewRegistry[Provider]()
}
