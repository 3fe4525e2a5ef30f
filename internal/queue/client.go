// Package queue carries analysis jobs from the API to the worker fleet.
package queue

import "context"

// Client hands an analysis job to whatever runs it.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, msg Message) error

func (f ClientFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }
