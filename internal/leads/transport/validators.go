package transport

import (
	"leadledger_backend/internal/leads/domain"
	"leadledger_backend/platform/validator"
)

// RegisterValidators adds the enum tags used by the lead DTOs.
func RegisterValidators(val *validator.Validator) error {
	if err := val.RegisterEnum("lead_order",
		string(domain.OrderScoreDesc), string(domain.OrderRecencyDesc), string(domain.OrderCreatedDesc)); err != nil {
		return err
	}
	if err := val.RegisterEnum("review_state",
		string(domain.ReviewPending), string(domain.ReviewPosted), string(domain.ReviewDeclined)); err != nil {
		return err
	}
	return val.RegisterEnum("source_kind",
		string(domain.SourceIngested), string(domain.SourceContractorUploaded))
}
