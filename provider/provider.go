package provider

import "context"

// Provider is anything the bot calls out to by name.
type Provider interface {
	Name() string
	// IsAvailable is a cheap readiness check; it must not call the backend.
	IsAvailable(ctx context.Context) bool
}

// RequestResponse is a Provider answering one input with one output.
type RequestResponse[I, O any] interface {
	Provider
	Execute(ctx context.Context, input I) (O, error)
}

// Factory builds a provider from its settings map in config.yml.
type Factory[T Provider] func(settings map[string]any) (T, error)

// Middleware decorates a RequestResponse.
type Middleware[I, O any] func(RequestResponse[I, O]) RequestResponse[I, O]

// Chain stacks mws around a provider, the first one outermost. Nil
// entries are skipped.
func Chain[I, O any](mws ...Middleware[I, O]) Middleware[I, O] {
	return func(p RequestResponse[I, O]) RequestResponse[I, O] {
		for i := len(mws) - 1; i >= 0; i-- {
			if mws[i] != nil {
				p = mws[i](p)
			}
		}
		return p
	}
}

// Func turns fn into an always-available provider called name.
func Func[I, O any](name string, fn func(ctx context.Context, input I) (O, error)) RequestResponse[I, O] {
	return &fnProvider[I, O]{name: name, fn: fn}
}

type fnProvider[I, O any] struct {
	name string
	fn   func(context.Context, I) (O, error)
}

func (f *fnProvider[I, O]) Name() string                     { return f.name }
func (f *fnProvider[I, O]) IsAvailable(context.Context) bool { return true }
func (f *fnProvider[I, O]) Execute(ctx context.Context, in I) (O, error) {
	return f.fn(ctx, in)
}

// around replaces Execute of the embedded provider and keeps the rest.
type around[I, O any] struct {
	RequestResponse[I, O]
	exec func(context.Context, I) (O, error)
}

func (a around[I, O]) Execute(ctx context.Context, in I) (O, error) { return a.exec(ctx, in) }
