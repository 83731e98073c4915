package usecase

import (
	"context"

	"github.com/shandysiswandi/irnotify/internal/pkg/goerror"
	"github.com/shandysiswandi/irnotify/internal/pkg/jwt"
)

// requireAuth returns the caller claims. Preferences, devices and attempts
// are keyed by user id, so a token without one is rejected as well.
func (s *Usecase) requireAuth(ctx context.Context) (*jwt.Claims, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil || clm.UserID <= 0 {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	return clm, nil
}
