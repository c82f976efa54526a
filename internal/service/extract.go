package service

import (
	"strconv"
	"strings"

	"github.com/eduplex/identity-sync/internal/model"
)

const companyIDAttribute = "custom:company_id"

// extractUser normalizes a raw provider record into its canonical projection.
// Email is mandatory; a record without one is an error, never a silent skip.
func extractUser(pu model.ProviderUser) (model.CanonicalUser, error) {
	email := strings.TrimSpace(pu.Attributes["email"])
	if email == "" {
		return model.CanonicalUser{}, &model.MissingAttributeError{ProviderID: pu.ID, Attribute: "email"}
	}

	return model.CanonicalUser{
		ProviderID:  pu.ID,
		Email:       email,
		DisplayName: displayName(pu.Attributes, email),
		Role:        roleForGroups(pu.Groups),
		CompanyID:   companyID(pu.Attributes),
		Status:      statusFor(pu.Enabled, pu.Status),
		Groups:      pu.Groups,
	}, nil
}

// displayName joins the given and family name attributes, falling back to
// the local part of the email when both are absent.
func displayName(attrs map[string]string, email string) string {
	given := strings.TrimSpace(attrs["given_name"])
	family := strings.TrimSpace(attrs["family_name"])

	name := strings.TrimSpace(strings.Join([]string{given, family}, " "))
	if name != "" {
		return name
	}

	local, _, _ := strings.Cut(email, "@")
	return local
}

// roleForGroups maps a group set to a single role. The priority order is
// fixed (admin > manager > director > teacher > student) so membership in
// several role groups resolves deterministically; unknown groups are
// ignored and the default is student.
func roleForGroups(groups []string) model.Role {
	for _, role := range model.RolePriority {
		for _, group := range groups {
			if strings.EqualFold(group, string(role)) {
				return role
			}
		}
	}
	return model.RoleStudent
}

func companyID(attrs map[string]string) *int64 {
	raw, ok := attrs[companyIDAttribute]
	if !ok {
		return nil
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

// statusFor derives the local account status. A disabled account is
// inactive regardless of lifecycle; an enabled one is active only once
// its lifecycle is confirmed, pending otherwise.
func statusFor(enabled bool, lifecycle model.LifecycleStatus) model.UserStatus {
	if !enabled {
		return model.StatusInactive
	}
	if lifecycle == model.LifecycleConfirmed {
		return model.StatusActive
	}
	return model.StatusPending
}
