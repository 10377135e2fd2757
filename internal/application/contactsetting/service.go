// Package contactsetting manages the configured email recipients per channel.
package contactsetting

import (
	"context"

	"go.uber.org/zap"

	appshared "github.com/propflow/backend/internal/application/shared"
	"github.com/propflow/backend/internal/domain/contactsetting"
	"github.com/propflow/backend/internal/domain/identity"
	"github.com/propflow/backend/internal/domain/shared"
)

// UpdateRequest replaces the recipients of a channel
type UpdateRequest struct {
	Recipients []string `json:"recipients" binding:"required,min=1"`
}

// Service reads and writes contact settings. Unconfigured channels fall back
// to the mail defaults.
type Service struct {
	scope    appshared.TransactionScope
	defaults []string
	logger   *zap.Logger
}

// NewService creates a new contact setting service
func NewService(scope appshared.TransactionScope, defaults []string, logger *zap.Logger) *Service {
	return &Service{scope: scope, defaults: defaults, logger: logger}
}

// Get returns the effective recipients of a channel. Admin only.
func (s *Service) Get(ctx context.Context, principal identity.Principal, channel string) (*contactsetting.View, error) {
	if err := principal.Require(identity.CapabilityAdmin); err != nil {
		return nil, err
	}
	c, err := contactsetting.ParseChannel(channel)
	if err != nil {
		return nil, err
	}
	view, err := Recipients(ctx, s.scope.Repositories(), c, s.defaults)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// Update stores the recipients of a channel. Admin only.
func (s *Service) Update(ctx context.Context, principal identity.Principal, channel string, req UpdateRequest) (*contactsetting.View, error) {
	if err := principal.Require(identity.CapabilityAdmin); err != nil {
		return nil, err
	}
	c, err := contactsetting.ParseChannel(channel)
	if err != nil {
		return nil, err
	}

	var setting *contactsetting.Setting
	err = appshared.RetryOnConflict(ctx, s.scope, appshared.DefaultRetryPolicy, func(ctx context.Context, repos appshared.Repositories) error {
		existing, err := repos.ContactSettings().Find(ctx, c)
		if shared.HasCode(err, shared.CodeNotFound) {
			setting, err = contactsetting.NewSetting(c, req.Recipients, principal.Username)
			if err != nil {
				return err
			}
			return repos.ContactSettings().Create(ctx, setting)
		}
		if err != nil {
			return err
		}
		if err := existing.SetRecipients(req.Recipients, principal.Username); err != nil {
			return err
		}
		setting = existing
		return repos.ContactSettings().Update(ctx, existing)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Contact setting updated",
		zap.String("channel", string(c)),
		zap.Int("recipients", len(setting.Recipients)),
		zap.String("updated_by", principal.Username))
	view := contactsetting.Resolve(c, setting, s.defaults)
	return &view, nil
}

// Reset removes the configured recipients so the defaults apply again. Admin only.
func (s *Service) Reset(ctx context.Context, principal identity.Principal, channel string) (*contactsetting.View, error) {
	if err := principal.Require(identity.CapabilityAdmin); err != nil {
		return nil, err
	}
	c, err := contactsetting.ParseChannel(channel)
	if err != nil {
		return nil, err
	}
	err = s.scope.Execute(ctx, func(ctx context.Context, repos appshared.Repositories) error {
		err := repos.ContactSettings().Delete(ctx, c)
		if shared.HasCode(err, shared.CodeNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	view := contactsetting.Resolve(c, nil, s.defaults)
	return &view, nil
}

// Recipients resolves the effective recipient list of a channel
func Recipients(ctx context.Context, repos appshared.Repositories, channel contactsetting.Channel, defaults []string) (contactsetting.View, error) {
	setting, err := repos.ContactSettings().Find(ctx, channel)
	if err != nil {
		if !shared.HasCode(err, shared.CodeNotFound) {
			return contactsetting.View{}, err
		}
		setting = nil
	}
	return contactsetting.Resolve(channel, setting, defaults), nil
}
