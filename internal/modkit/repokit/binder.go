package repokit

// Binder defers the choice of Queryer so one repo constructor serves both
// the pool and an open transaction
type Binder[T any] interface {
	Bind(Queryer) T
}

// BindFunc adapts a plain function to a Binder, handy for test fakes
type BindFunc[T any] func(Queryer) T

// Bind implements Binder
func (f BindFunc[T]) Bind(q Queryer) T { return f(q) }

// RequireQueryer panics on a nil Queryer, wiring bugs surface at bind time
// instead of on the first query
func RequireQueryer(q Queryer) Queryer {
	if q == nil {
		panic("repokit: nil Queryer")
	}
	return q
}

// MustBind validates q and binds in one step
func MustBind[T any](b Binder[T], q Queryer) T {
	return b.Bind(RequireQueryer(q))
}
