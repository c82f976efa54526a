package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduplex/identity-sync/internal/model"
)

func int64Ptr(v int64) *int64 { return &v }

func TestExtractUser(t *testing.T) {
	tests := []struct {
		name    string
		record  model.ProviderUser
		want    model.CanonicalUser
		wantErr bool
	}{
		{
			name: "full attribute set",
			record: model.ProviderUser{
				ID: "u1",
				Attributes: map[string]string{
					"email":             "jane.doe@school.edu",
					"given_name":        "Jane",
					"family_name":       "Doe",
					"custom:company_id": "42",
				},
				Enabled: true,
				Status:  model.LifecycleConfirmed,
				Groups:  []string{"teacher"},
			},
			want: model.CanonicalUser{
				ProviderID:  "u1",
				Email:       "jane.doe@school.edu",
				DisplayName: "Jane Doe",
				Role:        model.RoleTeacher,
				CompanyID:   int64Ptr(42),
				Status:      model.StatusActive,
				Groups:      []string{"teacher"},
			},
		},
		{
			name: "display name falls back to email local part",
			record: model.ProviderUser{
				ID:         "u2",
				Attributes: map[string]string{"email": "jdoe@school.edu"},
				Enabled:    true,
				Status:     model.LifecycleConfirmed,
			},
			want: model.CanonicalUser{
				ProviderID:  "u2",
				Email:       "jdoe@school.edu",
				DisplayName: "jdoe",
				Role:        model.RoleStudent,
				Status:      model.StatusActive,
			},
		},
		{
			name: "given name only",
			record: model.ProviderUser{
				ID:         "u3",
				Attributes: map[string]string{"email": "x@school.edu", "given_name": "Xavier"},
				Enabled:    true,
				Status:     model.LifecycleConfirmed,
			},
			want: model.CanonicalUser{
				ProviderID:  "u3",
				Email:       "x@school.edu",
				DisplayName: "Xavier",
				Role:        model.RoleStudent,
				Status:      model.StatusActive,
			},
		},
		{
			name: "missing email",
			record: model.ProviderUser{
				ID:         "u4",
				Attributes: map[string]string{"given_name": "No", "family_name": "Email"},
				Enabled:    true,
				Status:     model.LifecycleConfirmed,
			},
			wantErr: true,
		},
		{
			name: "disabled account is inactive regardless of lifecycle",
			record: model.ProviderUser{
				ID:         "u5",
				Attributes: map[string]string{"email": "off@school.edu"},
				Enabled:    false,
				Status:     model.LifecycleConfirmed,
			},
			want: model.CanonicalUser{
				ProviderID:  "u5",
				Email:       "off@school.edu",
				DisplayName: "off",
				Role:        model.RoleStudent,
				Status:      model.StatusInactive,
			},
		},
		{
			name: "unconfirmed account is pending",
			record: model.ProviderUser{
				ID:         "u6",
				Attributes: map[string]string{"email": "new@school.edu"},
				Enabled:    true,
				Status:     model.LifecycleUnconfirmed,
			},
			want: model.CanonicalUser{
				ProviderID:  "u6",
				Email:       "new@school.edu",
				DisplayName: "new",
				Role:        model.RoleStudent,
				Status:      model.StatusPending,
			},
		},
		{
			name: "unparsable company id is dropped",
			record: model.ProviderUser{
				ID:         "u7",
				Attributes: map[string]string{"email": "c@school.edu", "custom:company_id": "acme"},
				Enabled:    true,
				Status:     model.LifecycleConfirmed,
			},
			want: model.CanonicalUser{
				ProviderID:  "u7",
				Email:       "c@school.edu",
				DisplayName: "c",
				Role:        model.RoleStudent,
				Status:      model.StatusActive,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractUser(tt.record)
			if tt.wantErr {
				require.Error(t, err)
				var missing *model.MissingAttributeError
				require.True(t, errors.As(err, &missing))
				assert.Equal(t, "email", missing.Attribute)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoleForGroups(t *testing.T) {
	tests := []struct {
		name   string
		groups []string
		want   model.Role
	}{
		{name: "no groups defaults to student", groups: nil, want: model.RoleStudent},
		{name: "unknown groups default to student", groups: []string{"chess-club", "grade-7"}, want: model.RoleStudent},
		{name: "single role group", groups: []string{"director"}, want: model.RoleDirector},
		{name: "teacher beats student", groups: []string{"student", "teacher"}, want: model.RoleTeacher},
		{name: "admin beats everything", groups: []string{"student", "teacher", "admin", "manager"}, want: model.RoleAdmin},
		{name: "case insensitive", groups: []string{"Teacher"}, want: model.RoleTeacher},
		{name: "order in the group set is irrelevant", groups: []string{"teacher", "manager"}, want: model.RoleManager},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, roleForGroups(tt.groups))
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name      string
		enabled   bool
		lifecycle model.LifecycleStatus
		want      model.UserStatus
	}{
		{name: "enabled confirmed", enabled: true, lifecycle: model.LifecycleConfirmed, want: model.StatusActive},
		{name: "enabled unconfirmed", enabled: true, lifecycle: model.LifecycleUnconfirmed, want: model.StatusPending},
		{name: "enabled force change password", enabled: true, lifecycle: model.LifecycleForceChangePassword, want: model.StatusPending},
		{name: "enabled reset required", enabled: true, lifecycle: model.LifecycleResetRequired, want: model.StatusPending},
		{name: "enabled archived", enabled: true, lifecycle: model.LifecycleArchived, want: model.StatusPending},
		{name: "disabled confirmed", enabled: false, lifecycle: model.LifecycleConfirmed, want: model.StatusInactive},
		{name: "disabled unconfirmed", enabled: false, lifecycle: model.LifecycleUnconfirmed, want: model.StatusInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.enabled, tt.lifecycle))
		})
	}
}
