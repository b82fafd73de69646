package authsdk

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoginRequestValidate(t *testing.T) {
	t.Parallel()

	require.Empty(t, LoginRequest{UserName: "joe", Password: "pw"}.Validate())

	errs := LoginRequest{UserName: "   "}.Validate()
	require.Len(t, errs, 2)
	require.Equal(t, "userName", errs[0].Field)
	require.Equal(t, "password", errs[1].Field)
}

func TestRegisterRequestValidate(t *testing.T) {
	t.Parallel()

	valid := RegisterRequest{UserName: "joe", FullName: "Joe Bloggs", Password: "pw", ConfirmPassword: "pw"}
	require.Empty(t, valid.Validate())

	mismatch := valid
	mismatch.ConfirmPassword = "other"
	errs := mismatch.Validate()
	require.Len(t, errs, 1)
	require.Equal(t, "confirmPassword", errs[0].Field)
	require.Equal(t, "passwords do not match", errs[0].Message)

	env := Envelope[any]{Errors: RegisterRequest{}.Validate()}
	require.True(t, env.HasFieldError("userName"))
	require.True(t, env.HasFieldError("fullName"))
	require.True(t, env.HasFieldError("password"))
	require.False(t, env.HasFieldError("confirmPassword"))
}

func TestEnvelopeWireShape(t *testing.T) {
	t.Parallel()

	var env Envelope[string]
	require.NoError(t, json.Unmarshal([]byte(`{"success":false,"message":"m","errors":[{"field":"f","message":"x"}]}`), &env))
	require.False(t, env.Success)
	require.Equal(t, "m", env.Message)
	require.Equal(t, []FieldError{{Field: "f", Message: "x"}}, env.Errors)

	b, err := json.Marshal(Envelope[string]{Success: true, Data: "tok"})
	require.NoError(t, err)
	require.JSONEq(t, `{"success":true,"data":"tok"}`, string(b))
}
