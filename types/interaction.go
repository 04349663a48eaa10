package types

// NodeInteractionResult is the reputational outcome of talking to a node.
type NodeInteractionResult int

const (
	InteractionNeutral NodeInteractionResult = iota
	InteractionSuccess
	InteractionFailure
)

func (r NodeInteractionResult) String() string {
	switch r {
	case InteractionSuccess:
		return "success"
	case InteractionFailure:
		return "failure"
	default:
		return "neutral"
	}
}

// ValidationResult is the outcome of validating an entity received from a
// node.
type ValidationResult int

const (
	ValidationNeutral ValidationResult = iota
	ValidationSuccess
	ValidationFailureUnknown
	ValidationFailurePastDeadline
	ValidationFailureFutureDeadline
	ValidationFailureSignatureNotVerifiable
	ValidationFailureHashExists
	ValidationFailureChainInvalid
	ValidationFailureEntityUnusableOutOfSync
	ValidationFailureTransactionCacheTooFull
	ValidationFailureTimestampTooFarInFuture
)

var validationResultNames = map[ValidationResult]string{
	ValidationNeutral:                        "neutral",
	ValidationSuccess:                        "success",
	ValidationFailureUnknown:                 "failure_unknown",
	ValidationFailurePastDeadline:            "failure_past_deadline",
	ValidationFailureFutureDeadline:          "failure_future_deadline",
	ValidationFailureSignatureNotVerifiable:  "failure_signature_not_verifiable",
	ValidationFailureHashExists:              "failure_hash_exists",
	ValidationFailureChainInvalid:            "failure_chain_invalid",
	ValidationFailureEntityUnusableOutOfSync: "failure_entity_unusable_out_of_sync",
	ValidationFailureTransactionCacheTooFull: "failure_transaction_cache_too_full",
	ValidationFailureTimestampTooFarInFuture: "failure_timestamp_too_far_in_future",
}

func (r ValidationResult) String() string {
	if name, ok := validationResultNames[r]; ok {
		return name
	}
	return "failure_unknown"
}

func (r ValidationResult) IsSuccess() bool { return r == ValidationSuccess }

func (r ValidationResult) IsFailure() bool {
	return r != ValidationSuccess && r != ValidationNeutral
}

// InteractionResultFromValidation maps a validation outcome to its
// reputational effect. Outcomes caused by our own state (out of sync, full
// cache) are not held against the remote node.
func InteractionResultFromValidation(r ValidationResult) NodeInteractionResult {
	switch r {
	case ValidationSuccess:
		return InteractionSuccess
	case ValidationNeutral,
		ValidationFailureEntityUnusableOutOfSync,
		ValidationFailureTransactionCacheTooFull:
		return InteractionNeutral
	default:
		return InteractionFailure
	}
}

// AggregateValidationResults combines the results of a batch: the first
// failure wins, otherwise any neutral result makes the batch neutral. An
// empty batch is neutral.
func AggregateValidationResults(results ...ValidationResult) ValidationResult {
	if len(results) == 0 {
		return ValidationNeutral
	}

	aggregate := ValidationSuccess
	for _, r := range results {
		if r.IsFailure() {
			return r
		}
		if r == ValidationNeutral {
			aggregate = ValidationNeutral
		}
	}
	return aggregate
}
