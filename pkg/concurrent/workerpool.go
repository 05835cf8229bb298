// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package concurrent bounds the fan-out of background work.
package concurrent

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// WorkerPool runs batches of functions on a bounded number of goroutines.
type WorkerPool struct {
	workerCount int
}

// NewWorkerPool creates a pool with at least one worker.
func NewWorkerPool(workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &WorkerPool{
		workerCount: workerCount,
	}
}

// Run executes functions and returns the first error. Functions that have
// not started when an error occurs are skipped.
func (wp *WorkerPool) Run(ctx context.Context, functions ...func() error) error {
	if len(functions) == 0 {
		return nil
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(wp.workerCount)

	for _, fn := range functions {
		g.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			return fn()
		})
	}

	return g.Wait()
}

// RunAll executes every function regardless of failures and returns the
// errors in submission order. A nil result means all succeeded.
func (wp *WorkerPool) RunAll(ctx context.Context, functions ...func() error) []error {
	if len(functions) == 0 {
		return nil
	}

	results := make([]error, len(functions))
	var g errgroup.Group
	g.SetLimit(wp.workerCount)

	for i, fn := range functions {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = err
				return nil
			}
			results[i] = fn()
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, err := range results {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Dispatcher hands long-lived streams of work to a fixed number of
// goroutines. Submit blocks while every worker is busy, which pushes back
// on the producer.
type Dispatcher struct {
	g errgroup.Group
}

// NewDispatcher creates a dispatcher with at least one worker.
func NewDispatcher(workerCount int) *Dispatcher {
	if workerCount <= 0 {
		workerCount = 1
	}
	d := &Dispatcher{}
	d.g.SetLimit(workerCount)
	return d
}

// Submit runs fn on a free worker.
func (d *Dispatcher) Submit(fn func()) {
	d.g.Go(func() error {
		fn()
		return nil
	})
}

// Wait blocks until every submitted function has returned.
func (d *Dispatcher) Wait() {
	_ = d.g.Wait()
}
