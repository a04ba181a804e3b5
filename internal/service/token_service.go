package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkg_hash "github.com/Skotchmaster/video_hosting/internal/hash"
	"github.com/Skotchmaster/video_hosting/internal/logging"
	"github.com/Skotchmaster/video_hosting/internal/models"
	"github.com/Skotchmaster/video_hosting/internal/mykafka"
	"github.com/Skotchmaster/video_hosting/internal/tokens"
)

// ErrTokenReused means a refresh token that was already rotated away
// was presented again. Clients see a plain 401; the distinction only
// feeds logs and the audit topic.
var ErrTokenReused = errors.New("refresh token reused")

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

type TokenService struct {
	DB            *gorm.DB
	AccessSecret  []byte
	RefreshSecret []byte
	Producer      *mykafka.Producer
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

func (s *TokenService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return defaultAccessTTL
}

func (s *TokenService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return defaultRefreshTTL
}

// IssueTokenPair opens a new session for the user: fresh jti, fresh
// refresh token, session row holding the hash of the only refresh
// token that is currently valid for that session.
func (s *TokenService) IssueTokenPair(ctx context.Context, userID uint) (*TokenPair, error) {
	accessExp := time.Now().Add(s.accessTTL())
	accessToken, err := tokens.NewAccessToken(userID, accessExp, s.AccessSecret)
	if err != nil {
		return nil, err
	}

	jti := uuid.NewString()
	refreshExp := time.Now().Add(s.refreshTTL())
	refreshToken, err := tokens.NewRefreshToken(userID, jti, refreshExp, s.RefreshSecret)
	if err != nil {
		return nil, err
	}

	session := models.Session{
		JTI:       jti,
		UserID:    userID,
		TokenHash: pkg_hash.Sha256Hex(refreshToken),
		ExpiresAt: refreshExp.Unix(),
	}
	if err := s.DB.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

// VerifyAccessToken checks signature and expiry only; no storage.
func (s *TokenService) VerifyAccessToken(tokenStr string) (uint, error) {
	claims, err := tokens.AccessClaimsFromToken(tokenStr, s.AccessSecret)
	if err != nil {
		return 0, err
	}
	return claims.UserID()
}

// Rotate exchanges a presented refresh token for a new pair. The
// conditional UPDATE is the whole protocol: it only succeeds if the
// presented token is still the session's current one, so of two
// concurrent rotations with the same token exactly one wins and the
// other comes back ErrTokenReused.
func (s *TokenService) Rotate(ctx context.Context, presented string) (*TokenPair, error) {
	claims, err := tokens.RefreshClaimsFromToken(presented, s.RefreshSecret)
	if err != nil {
		return nil, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}

	refreshExp := time.Now().Add(s.refreshTTL())
	newRefresh, err := tokens.NewRefreshToken(userID, claims.ID, refreshExp, s.RefreshSecret)
	if err != nil {
		return nil, err
	}

	res := s.DB.WithContext(ctx).Model(&models.Session{}).
		Where("jti = ? AND token_hash = ? AND revoked = ? AND expires_at > ?",
			claims.ID, pkg_hash.Sha256Hex(presented), false, time.Now().Unix()).
		Updates(map[string]interface{}{
			"token_hash": pkg_hash.Sha256Hex(newRefresh),
			"expires_at": refreshExp.Unix(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, s.classifyRotationFailure(ctx, claims.ID, userID)
	}

	accessExp := time.Now().Add(s.accessTTL())
	accessToken, err := tokens.NewAccessToken(userID, accessExp, s.AccessSecret)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

// classifyRotationFailure decides why the CAS matched nothing. A live
// session with a different hash is the replay case worth auditing.
func (s *TokenService) classifyRotationFailure(ctx context.Context, jti string, userID uint) error {
	l := logging.FromContext(ctx).With("svc", "token.rotate", "jti", jti)

	var session models.Session
	if err := s.DB.WithContext(ctx).Where("jti = ?", jti).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tokens.ErrTokenInvalid
		}
		return err
	}
	if session.Revoked {
		return tokens.ErrTokenInvalid
	}
	if session.ExpiresAt <= time.Now().Unix() {
		return tokens.ErrTokenExpired
	}

	l.Warn("refresh token reuse detected", "user_id", userID)
	if s.Producer != nil {
		event := map[string]interface{}{
			"type":    "token_reuse_detected",
			"user_id": userID,
			"jti":     jti,
		}
		if err := s.Producer.PublishEvent(ctx, "auth_events", uintKey(userID), event); err != nil {
			l.Error("audit publish failed", "error", err)
		}
	}
	return ErrTokenReused
}

// Revoke ends the session. Revoking an already-revoked or missing
// session is a no-op.
func (s *TokenService) Revoke(ctx context.Context, jti string) error {
	return s.DB.WithContext(ctx).Model(&models.Session{}).
		Where("jti = ?", jti).
		Update("revoked", true).Error
}

// RevokeByToken is the logout path: the cookie value is all we have.
// Signature must still check out, expiry does not matter.
func (s *TokenService) RevokeByToken(ctx context.Context, presented string) error {
	claims, err := tokens.RefreshClaimsFromToken(presented, s.RefreshSecret)
	if err != nil {
		if errors.Is(err, tokens.ErrTokenExpired) {
			return nil
		}
		return err
	}
	return s.Revoke(ctx, claims.ID)
}

// PurgeExpiredSessions drops sessions past their expiry. Run
// periodically; expired rows are garbage, not errors.
func (s *TokenService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	res := s.DB.WithContext(ctx).
		Where("expires_at <= ?", time.Now().Unix()).
		Delete(&models.Session{})
	return res.RowsAffected, res.Error
}
