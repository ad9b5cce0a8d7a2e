package requestcontext

import (
	"context"
	"log/slog"
	"net/netip"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/sss-network/sss-indexer/pkg/logger"
	"github.com/sss-network/sss-indexer/pkg/logger/slogx"
)

type clientIPKey struct{}

type WithClientIPConfig struct {
	// TrustedHeader names a header carrying the client ip (e.g. X-Real-IP, CF-Connecting-IP).
	// A valid ip in it wins over X-Forwarded-For.
	TrustedHeader string `mapstructure:"trusted_proxies_header"`

	// TrustedProxiesIP lists the CIDR ranges of every proxy in front of the server.
	// The client ip is the last X-Forwarded-For entry outside these ranges.
	TrustedProxiesIP []string `mapstructure:"trusted_proxies_ip"`

	// EnableRejectMalformedRequest answers 403 when X-Forwarded-For is present but no trusted proxies are configured.
	EnableRejectMalformedRequest bool `mapstructure:"enable_reject_malformed_request"`
}

// GetClientIP returns the client ip stored by WithClientIP, or "".
func GetClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// WithClientIP resolves the client ip while guarding against X-Forwarded-For spoofing.
// It panics on an invalid trusted proxy range.
func WithClientIP(config WithClientIPConfig) Option {
	proxies, err := parsePrefixes(config.TrustedProxiesIP)
	if err != nil {
		logger.Panic("Invalid trusted proxies", slogx.Error(err))
	}

	return func(ctx context.Context, c *fiber.Ctx) (context.Context, error) {
		ip, err := clientIP(c, config, proxies)
		if err != nil {
			logger.WarnContext(ctx, "Rejected request with spoofable client ip",
				slog.String("package", "requestcontext"),
				slog.String("remoteIP", c.IP()),
				slog.Any("x-forwarded-for", c.IPs()),
			)
			return nil, err
		}
		return context.WithValue(ctx, clientIPKey{}, ip), nil
	}
}

func clientIP(c *fiber.Ctx, config WithClientIPConfig, proxies []netip.Prefix) (string, error) {
	if config.TrustedHeader != "" {
		if addr, err := netip.ParseAddr(c.Get(config.TrustedHeader)); err == nil {
			return addr.String(), nil
		}
	}

	forwarded := c.IPs()
	if len(forwarded) == 0 {
		return c.IP(), nil
	}

	if len(proxies) > 0 {
		for i := len(forwarded) - 1; i >= 0; i-- {
			addr, err := netip.ParseAddr(forwarded[i])
			if err != nil || !trusted(proxies, addr) {
				return forwarded[i], nil
			}
		}
		return forwarded[0], nil
	}

	if config.EnableRejectMalformedRequest {
		return "", fiber.NewError(fiber.StatusForbidden, "not allowed to access")
	}
	return forwarded[0], nil
}

func trusted(proxies []netip.Prefix, addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range proxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func parsePrefixes(ranges []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(ranges))
	for _, r := range ranges {
		p, err := netip.ParsePrefix(r)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse CIDR %q", r)
		}
		prefixes = append(prefixes, p.Masked())
	}
	return prefixes, nil
}
