package service

import (
	"backend/internal/models"
)

// AccessPolicy decides whether a principal may read a prediction record.
// Records without an owner are readable by anyone holding the id; owned
// records only by their owner. Admin bypass is deliberately not handled
// here.
type AccessPolicy struct{}

func (AccessPolicy) CanRead(p *models.Prediction, principal models.Principal) bool {
	if p.RequesterID == nil {
		return true
	}
	switch pr := principal.(type) {
	case models.Authenticated:
		return pr.UserID == *p.RequesterID
	default:
		return false
	}
}
