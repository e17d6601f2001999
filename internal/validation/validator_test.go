// Hoods - Marketplace Backend
// Copyright 2026 Hoods Tech
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hoodstech/hoods-be-main

package validation

import (
	"strings"
	"testing"
)

type registerRequest struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8,max=72"`
	Role     string `validate:"required,marketrole"`
}

type interactionRequest struct {
	Type string `validate:"required,interaction"`
}

func TestValidateStructPasses(t *testing.T) {
	req := registerRequest{
		Email:    "seller@example.com",
		Password: "long enough password",
		Role:     "seller",
	}
	if err := ValidateStruct(&req); err != nil {
		t.Errorf("valid struct rejected: %v", err)
	}
}

func TestValidateStructFieldFailures(t *testing.T) {
	tests := []struct {
		name      string
		req       registerRequest
		wantField string
	}{
		{
			name:      "missing email",
			req:       registerRequest{Password: "long enough password", Role: "buyer"},
			wantField: "Email",
		},
		{
			name:      "bad email",
			req:       registerRequest{Email: "not-an-email", Password: "long enough password", Role: "buyer"},
			wantField: "Email",
		},
		{
			name:      "short password",
			req:       registerRequest{Email: "a@b.com", Password: "short", Role: "buyer"},
			wantField: "Password",
		},
		{
			name:      "unknown role",
			req:       registerRequest{Email: "a@b.com", Password: "long enough password", Role: "wizard"},
			wantField: "Role",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.req)
			if err == nil {
				t.Fatal("expected validation failure")
			}
			if got := err.Errors()[0].Field(); got != tt.wantField {
				t.Errorf("failed field = %s, want %s", got, tt.wantField)
			}
		})
	}
}

func TestInteractionValidator(t *testing.T) {
	for _, valid := range []string{"like", "dislike", "favorite"} {
		if err := ValidateStruct(&interactionRequest{Type: valid}); err != nil {
			t.Errorf("%s rejected: %v", valid, err)
		}
	}
	if err := ValidateStruct(&interactionRequest{Type: "superlike"}); err == nil {
		t.Error("unknown interaction type should be rejected")
	}
}

func TestToAPIErrorSingle(t *testing.T) {
	err := ValidateStruct(&registerRequest{Email: "a@b.com", Password: "long enough password", Role: "wizard"})
	if err == nil {
		t.Fatal("expected validation failure")
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %s, want VALIDATION_ERROR", apiErr.Code)
	}
	if apiErr.Details["field"] != "Role" {
		t.Errorf("details field = %v, want Role", apiErr.Details["field"])
	}
}

func TestToAPIErrorMultiple(t *testing.T) {
	err := ValidateStruct(&registerRequest{})
	if err == nil {
		t.Fatal("expected validation failure")
	}
	if len(err.Errors()) != 3 {
		t.Fatalf("errors = %d, want 3", len(err.Errors()))
	}

	apiErr := err.ToAPIError()
	if _, ok := apiErr.Details["fields"]; !ok {
		t.Error("multiple failures should list fields in details")
	}
	if !strings.Contains(apiErr.Message, "Email") || !strings.Contains(apiErr.Message, "Password") {
		t.Errorf("message should name each field: %s", apiErr.Message)
	}
}
