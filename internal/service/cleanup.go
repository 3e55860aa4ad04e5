package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"readaloud/internal/entity"
	"readaloud/internal/errs"
	"readaloud/internal/model"

	"github.com/sirupsen/logrus"
)

const (
	CleanupActionDeletedUnverified = "deleted_unverified"
	CleanupActionNone              = "none"
)

// ErrEmailRequired is returned when cleanup is called without an email.
var ErrEmailRequired = errors.New("email is required")

// CleanupReport describes what a cleanup pass found and did.
type CleanupReport struct {
	Action       string               `json:"action"`
	DeletedUser  *entity.UserSummary  `json:"deletedUser"`
	DeletedUsers []entity.UserSummary `json:"deletedUsers,omitempty"`
	VerifiedUser *entity.UserSummary  `json:"verifiedUser"`
	AllUsers     []entity.UserSummary `json:"allUsers"`
}

// CleanupService removes unverified password sign-ups shadowed by a
// verified record for the same email.
type CleanupService struct {
	repo model.Repository
}

func NewCleanupService(repo model.Repository) *CleanupService {
	return &CleanupService{repo: repo}
}

// Cleanup deletes unverified credentials records for email, but only when a
// verified record for the same email exists.
func (s *CleanupService) Cleanup(ctx context.Context, email string) (*CleanupReport, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrEmailRequired
	}

	users, err := s.repo.FindUsersByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}

	report := &CleanupReport{Action: CleanupActionNone, AllUsers: make([]entity.UserSummary, 0, len(users))}
	var (
		verified   *entity.DbUser
		unverified []*entity.DbUser
	)
	for i := range users {
		u := &users[i]
		report.AllUsers = append(report.AllUsers, *entity.MakeUserSummary(u))
		switch {
		case u.IsVerified():
			if verified == nil {
				verified = u
			}
		case u.IsUnverifiedCredentials():
			unverified = append(unverified, u)
		}
	}
	report.VerifiedUser = entity.MakeUserSummary(verified)

	if verified == nil || len(unverified) == 0 {
		return report, nil
	}

	for _, u := range unverified {
		if err := s.repo.DeleteUser(ctx, u.ID); err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("delete user %s: %w", u.ID, err)
		}
		report.DeletedUsers = append(report.DeletedUsers, *entity.MakeUserSummary(u))
		logrus.WithFields(logrus.Fields{
			"email":            email,
			"deleted_user_id":  u.ID,
			"verified_user_id": verified.ID,
		}).Info("cleanup_deleted_unverified")
	}
	if len(report.DeletedUsers) > 0 {
		report.Action = CleanupActionDeletedUnverified
		report.DeletedUser = &report.DeletedUsers[0]
	}
	return report, nil
}
