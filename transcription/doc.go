// Package transcription defines the speech-to-text capability and the
// request/response model shared by its backends.
//
// # Backends
//
//   - transcription/speech: Google Cloud Speech-to-Text (speech:recognize)
//   - transcription/whisper: OpenAI Whisper through go-openai
//
// # Usage
//
//	reg := transcription.NewRegistry()
//	reg.RegisterFactory(speech.ProviderName, speech.Factory(tokens))
//	p, err := reg.Create("speech", settings)
//	resp, err := p.Execute(ctx, req)
package transcription
