// Package convert implements the image sequence conversion pipeline used
// by djv_convert.
//
// A conversion opens the input through an imageio.Registry, narrows it to
// the requested frame range, opens the output, optionally writes a slate
// and then reads, transforms and writes each frame in order:
//
//	registry, _ := djv.NewRegistry()
//	opts := convert.NewOptions()
//	opts.Input.File = "render.0001-0100.dpx"
//	opts.Output.File = "review.0001.png"
//	opts.Scale = transform.Vec{X: 0.5, Y: 0.5}
//	opts.Input.Timeout = 30
//
//	c := convert.NewConverter(registry, convert.WithObserver(convert.NewPrintObserver(os.Stdout)))
//	result, err := c.Run(ctx, opts)
//
// Opening the input and each frame read or write are retried once per
// retry interval until Input.Timeout intervals are spent, so files still
// being written by a renderer can be picked up. Exhausting the budget is
// fatal. Every failure is an *Error whose Kind is matched with errors.Is
// against ErrCannotOpenInput, ErrReadFailure and the other sentinels; the
// output is always closed before Run returns.
//
// Frames whose layout already matches the output and need no transform
// are written without a copy. Result.Copies counts the frames that were
// copied.
package convert
