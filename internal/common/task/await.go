package task

import "context"

// Await waits for one value from ch off the executor and resumes fn on it.
// fn gets ctx.Err() if the context ends first, or ErrChannelClosed when ch is
// closed without a value. Nothing runs if the executor was closed meanwhile.
func Await[T any](ctx context.Context, exec Executor, ch <-chan T, fn func(T, error)) {
	go func() {
		var (
			v   T
			err error
		)
		select {
		case r, ok := <-ch:
			if ok {
				v = r
			} else {
				err = ErrChannelClosed
			}
		case <-ctx.Done():
			err = ctx.Err()
		}
		exec.Post(func() { fn(v, err) })
	}()
}
