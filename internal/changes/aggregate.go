package changes

import (
	"errors"
	"fmt"

	"github.com/spec-kit/wiki-moderation/internal/domain"
)

// Aggregate merges independent pending requests for one array field into a
// single diff, in arrival order. Contradictory requests on the same element
// are all kept; resolving them is left to the moderator.
//
// A request that lacks the values its action needs is left out of the diff
// and reported in the returned error (one MalformedRequestError per request,
// joined). The diff of the well-formed requests is always returned.
func Aggregate(requests []domain.ChangeRequest) (ArrayDiff, error) {
	result := NewArrayDiff()
	var errs []error

	for _, req := range requests {
		switch req.Action {
		case domain.ActionAdd:
			if !req.HasNewValue() {
				errs = append(errs, malformed(req, "add request has no newValue"))
				continue
			}
			value, err := DecodeValue(req.NewValue)
			if err != nil {
				errs = append(errs, malformed(req, fmt.Sprintf("decode newValue: %v", err)))
				continue
			}
			result.Added = append(result.Added, value)
		case domain.ActionDelete:
			if !req.HasOldValue() {
				errs = append(errs, malformed(req, "delete request has no oldValue"))
				continue
			}
			value, err := DecodeValue(req.OldValue)
			if err != nil {
				errs = append(errs, malformed(req, fmt.Sprintf("decode oldValue: %v", err)))
				continue
			}
			result.Removed = append(result.Removed, value)
		case domain.ActionUpdate:
			if !req.HasOldValue() || !req.HasNewValue() {
				errs = append(errs, malformed(req, "update request needs both oldValue and newValue"))
				continue
			}
			oldValue, err := DecodeValue(req.OldValue)
			if err != nil {
				errs = append(errs, malformed(req, fmt.Sprintf("decode oldValue: %v", err)))
				continue
			}
			newValue, err := DecodeValue(req.NewValue)
			if err != nil {
				errs = append(errs, malformed(req, fmt.Sprintf("decode newValue: %v", err)))
				continue
			}
			result.Modified = append(result.Modified, Modification{Old: oldValue, New: newValue})
		default:
			errs = append(errs, malformed(req, fmt.Sprintf("unknown action %q", req.Action)))
		}
	}

	return result, errors.Join(errs...)
}

// MalformedRequests unpacks the per-request errors returned by Aggregate.
func MalformedRequests(err error) []*MalformedRequestError {
	if err == nil {
		return nil
	}
	var out []*MalformedRequestError
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, inner := range joined.Unwrap() {
			out = append(out, MalformedRequests(inner)...)
		}
		return out
	}
	var single *MalformedRequestError
	if errors.As(err, &single) {
		out = append(out, single)
	}
	return out
}
