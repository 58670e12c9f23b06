package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"fraud-monitor/internal/source"
)

const (
	defaultCheckIP    = "1.2.3.4"
	defaultCheckEmail = "test@demo.com"
)

var defaultOriginBalance = decimal.NewFromInt(1000)

// Check submits one evaluation request. The result itself arrives on the live stream;
// only the acknowledgement is printed here.
func (a *App) Check(ctx context.Context, opts CheckOptions) (source.Acknowledgement, error) {
	req := buildEvaluationRequest(opts)
	sink := source.NewCommandSink(a.sourceOptions(), a.Logger)

	ack, err := sink.Submit(ctx, req)
	if err != nil {
		return source.Acknowledgement{}, err
	}

	if ack.Score != nil {
		fmt.Fprintf(a.Out, "submitted: risk=%s score=%.4f\n", ack.Risk, *ack.Score)
	} else {
		fmt.Fprintf(a.Out, "submitted: %s\n", string(ack.Raw))
	}
	return ack, nil
}

// buildEvaluationRequest fills unset balances the way the dashboard simulator does:
// origin 1000 drained by amount, destination 0 credited by amount.
func buildEvaluationRequest(opts CheckOptions) source.EvaluationRequest {
	oldOrigin := defaultOriginBalance
	if opts.OldBalanceOrigin != nil {
		oldOrigin = *opts.OldBalanceOrigin
	}
	newOrigin := oldOrigin.Sub(opts.Amount)
	if opts.NewBalanceOrigin != nil {
		newOrigin = *opts.NewBalanceOrigin
	}
	oldDest := decimal.Zero
	if opts.OldBalanceDest != nil {
		oldDest = *opts.OldBalanceDest
	}
	newDest := oldDest.Add(opts.Amount)
	if opts.NewBalanceDest != nil {
		newDest = *opts.NewBalanceDest
	}

	ip := opts.IP
	if ip == "" {
		ip = defaultCheckIP
	}
	email := opts.Email
	if email == "" {
		email = defaultCheckEmail
	}

	return source.EvaluationRequest{
		Amount:           opts.Amount,
		OldBalanceOrigin: oldOrigin,
		NewBalanceOrigin: newOrigin,
		Type:             opts.Type,
		OldBalanceDest:   oldDest,
		NewBalanceDest:   newDest,
		IP:               ip,
		Email:            email,
	}
}
