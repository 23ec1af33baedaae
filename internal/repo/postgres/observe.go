package postgres

// DBObserver records latency and error class per logical DB operation.
type DBObserver interface {
	ObserveDB(op string, fn func() error) error
}

func observe(o DBObserver, op string, fn func() error) error {
	if o == nil {
		return fn()
	}
	return o.ObserveDB(op, fn)
}
