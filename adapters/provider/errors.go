package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/layer-3/walletgate/core"
)

// EIP-1193 and JSON-RPC error codes the adapters distinguish
const (
	CodeUserRejected   = 4001
	CodeUnauthorized   = 4100
	CodeRequestPending = -32002
	CodeMethodNotFound = -32601
)

// classify maps a provider error onto the core taxonomy. rejected is the
// error used for an explicit user refusal in the calling context.
func classify(err error, rejected error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var rpcErr rpc.Error
	if !errors.As(err, &rpcErr) {
		return err
	}

	switch rpcErr.ErrorCode() {
	case CodeUserRejected, CodeUnauthorized:
		return fmt.Errorf("%w: %w", rejected, err)
	case CodeRequestPending:
		return fmt.Errorf("%w: %w", core.ErrRequestPending, err)
	case CodeMethodNotFound:
		return fmt.Errorf("%w: %w", core.ErrStrategyUnsupported, err)
	}
	if strings.Contains(rpcErr.Error(), "Already processing") {
		return fmt.Errorf("%w: %w", core.ErrRequestPending, err)
	}
	return err
}

// classifyAccounts is classify for account calls, where a failure that is
// not a JSON-RPC error means the provider cannot be reached at all.
func classifyAccounts(err error) error {
	if err == nil {
		return nil
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return classify(err, core.ErrUserRejected)
	}
	return fmt.Errorf("%w: %w", core.ErrProviderUnavailable, err)
}

// classifySign is classify for signing calls. A failure that is not a
// JSON-RPC error means the wallet went away; no prompt was shown.
func classifySign(err error) error {
	if err == nil {
		return nil
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return classify(err, core.ErrSignRejected)
	}
	return fmt.Errorf("%w: %w", core.ErrProviderUnavailable, err)
}
