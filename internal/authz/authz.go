// Package authz provides authorization utilities: vendor identity comes
// from the API Gateway JWT authorizer, external client signers authenticate
// with the capability token (or access code) minted by the signer registry.
package authz

import (
	"errors"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/gatherly/contract-esign-portal/internal/models"
)

// ErrUnauthorized is returned when a caller cannot be identified.
var ErrUnauthorized = errors.New("unauthorized")

const devBypassHeader = "x-user-sub"

// headerLookup returns the value of a header key, case-insensitively.
func headerLookup(h map[string]string, key string) string {
	if len(h) == 0 {
		return ""
	}
	lk := strings.ToLower(key)
	for k, v := range h {
		if strings.ToLower(k) == lk {
			return v
		}
	}
	return ""
}

// VendorSub extracts the authenticated vendor's user sub from the request,
// supporting a dev bypass header.
func VendorSub(req events.APIGatewayV2HTTPRequest, devBypass bool) (string, error) {
	if devBypass {
		if sub := strings.TrimSpace(headerLookup(req.Headers, devBypassHeader)); sub != "" {
			return sub, nil
		}
	}
	if req.RequestContext.Authorizer != nil && req.RequestContext.Authorizer.JWT != nil {
		if sub, ok := req.RequestContext.Authorizer.JWT.Claims["sub"]; ok && sub != "" {
			return sub, nil
		}
	}
	return "", ErrUnauthorized
}

// Signer identifies the signer a request acts for. External signers carry
// the opaque access token in a header or query parameter; client signers
// without the token may instead present email plus the short access code.
func Signer(c *models.Contract, req events.APIGatewayV2HTTPRequest) (*models.Signer, error) {
	token := strings.TrimSpace(headerLookup(req.Headers, "x-access-token"))
	if token == "" {
		token = strings.TrimSpace(req.QueryStringParameters["token"])
	}
	if token != "" {
		for i := range c.Signers {
			if c.Signers[i].AccessToken == token {
				return &c.Signers[i], nil
			}
		}
		return nil, ErrUnauthorized
	}

	email := strings.ToLower(strings.TrimSpace(req.QueryStringParameters["email"]))
	code := strings.ToUpper(strings.TrimSpace(headerLookup(req.Headers, "x-access-code")))
	if email == "" || code == "" {
		return nil, ErrUnauthorized
	}
	for i := range c.Signers {
		s := &c.Signers[i]
		if s.Role == models.RoleClient && strings.ToLower(s.Email) == email && s.AccessCode == code {
			return s, nil
		}
	}
	return nil, ErrUnauthorized
}
