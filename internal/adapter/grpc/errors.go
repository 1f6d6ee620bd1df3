package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/simaogato/splitledger-backend/internal/domain"
)

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	msg := err.Error()
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, msg)
	case errors.Is(err, domain.ErrAlreadyReversed):
		return status.Error(codes.AlreadyExists, msg)
	case errors.Is(err, domain.ErrInvalidPolicyInput),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrUnknownCurrency),
		errors.Is(err, domain.ErrMemberNotInGroup):
		return status.Error(codes.InvalidArgument, msg)
	case errors.Is(err, domain.ErrUnbalancedAllocation), errors.Is(err, domain.ErrInvariantViolation):
		// Never caused by the caller
		return status.Error(codes.Internal, msg)
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, msg)
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, msg)
	default:
		return status.Error(codes.Internal, msg)
	}
}

// validationError lists every failing field in one InvalidArgument status
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}

	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		part := fe.Namespace() + " failed on " + fe.Tag()
		if fe.Param() != "" {
			part += "=" + fe.Param()
		}
		parts = append(parts, part)
	}
	return status.Error(codes.InvalidArgument, "invalid request: "+strings.Join(parts, "; "))
}
