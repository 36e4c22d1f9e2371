package cqrs

import (
	"context"
	"time"

	"cqrskit/internal/infra/kernel"
)

// QueryGateway accepts Queries only.
type QueryGateway struct {
	gw *Gateway
}

func NewQueryGateway(gw *Gateway) *QueryGateway { return &QueryGateway{gw: gw} }

func (q *QueryGateway) Query(ctx context.Context, query Query, opts ...ApplyOption) (any, error) {
	if err := rejectKind(query, QueryType); err != nil {
		return nil, err
	}
	return q.gw.ApplyNow(ctx, query, opts...)
}

func (q *QueryGateway) QueryEither(ctx context.Context, query Query, opts ...ApplyOption) (Either, error) {
	if err := rejectKind(query, QueryType); err != nil {
		return Either{}, err
	}
	return q.gw.ApplyEitherNow(ctx, query, opts...)
}

func (q *QueryGateway) QueryAndWait(ctx context.Context, query Query, timeout time.Duration, opts ...ApplyOption) (any, error) {
	if err := rejectKind(query, QueryType); err != nil {
		return nil, err
	}
	return q.gw.ApplyAndWait(ctx, query, timeout, opts...)
}

func (q *QueryGateway) QueryAndWaitEither(ctx context.Context, query Query, timeout time.Duration, opts ...ApplyOption) (Either, error) {
	if err := rejectKind(query, QueryType); err != nil {
		return Either{}, err
	}
	return q.gw.ApplyAndWaitEither(ctx, query, timeout, opts...)
}

func (q *QueryGateway) QueryAsync(ctx context.Context, query Query, opts ...ApplyOption) *kernel.Future[any] {
	if err := rejectKind(query, QueryType); err != nil {
		return kernel.FailedFuture[any](err)
	}
	return q.gw.ApplyAsync(ctx, query, opts...)
}
