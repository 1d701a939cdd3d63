package worker

import (
	"runtime"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/olivierh59500/trampoline-go/oerror"
)

var workerQueue = make(chan func(), runtime.NumCPU())

func init() {
	for i := 0; i < runtime.NumCPU(); i++ {
		go worker()
	}
}

func worker() {
	for f := range workerQueue {
		run(f)
	}
}

// run executes a single job. A crashing job is reported and does not take the worker down with it.
func run(f func()) {
	defer func() {
		if err := recover(); err != nil {
			report(oerror.New("worker job crashed: %v", err))
		}
	}()
	f()
}

func report(err error) {
	hub := sentry.CurrentHub().Clone()
	hub.Recover(err)
	hub.Flush(time.Second * 5)
}

// Submit queues f on one of the workers. To be used by a function that may be CPU intensive, such
// as building a sheet.
func Submit(f func()) {
	workerQueue <- f
}

// Go runs f on a worker and delivers its result on the returned channel. If f panics, the panic is
// reported and delivered as an error instead.
func Go(f func() error) <-chan error {
	done := make(chan error, 1)
	Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				err := oerror.New("background job crashed: %v", r)
				report(err)
				done <- err
			}
		}()
		done <- f()
	})
	return done
}
