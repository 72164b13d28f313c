package user

import (
	"testing"
	"time"
)

func TestMakeVerifyToken(t *testing.T) {
	tg := NewTokenGenerator("secret", 3*24*time.Hour)

	now := time.Now()
	usr := User{
		ID:             "8a4d3c67-0f6e-4a8e-9a51-4c2cbd0a2d11",
		Email:          "t@test.test",
		ParentName:     "T",
		HouseholdToken: "f5e7b1a2-7d6c-4f9a-8f43-1e1f3c7b9d20",
		Status:         StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
		LastLogin:      now,
	}
	_ = usr.SetPassword("pwd")

	validToken, err := tg.MakeToken(usr)
	if err != nil {
		t.Fatalf("MakeToken(): %v", err)
	}

	// generate an expired token
	dayLate := time.Duration(tg.maxDays+1) * 24 * time.Hour
	NowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken, err := tg.MakeToken(usr)
	if err != nil {
		t.Fatalf("MakeToken(): %v", err)
	}
	NowFunc = time.Now // reset

	loggedInAgain := usr
	loggedInAgain.LastLogin = now.Add(time.Minute)

	disabled := usr
	disabled.Status = StatusDisabled

	otherKey := NewTokenGenerator("other", 3*24*time.Hour)

	tests := []struct {
		name    string
		tg      TokenGenerator
		usr     User
		token   string
		wantErr error
	}{
		{name: "no token", tg: tg, usr: usr, wantErr: errInvalidToken},
		{name: "invalid parts len", tg: tg, usr: usr, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", tg: tg, usr: usr, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", tg: tg, usr: usr, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", tg: tg, usr: usr, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "expired token", tg: tg, usr: usr, token: expiredToken, wantErr: errTokenExpired},
		{name: "user logged in since", tg: tg, usr: loggedInAgain, token: validToken, wantErr: errInvalidToken},
		{name: "account disabled since", tg: tg, usr: disabled, token: validToken, wantErr: errInvalidToken},
		{name: "other secret key", tg: otherKey, usr: usr, token: validToken, wantErr: errInvalidToken},
		{name: "valid token", tg: tg, usr: usr, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.tg.verifyToken(tt.usr, tt.token); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	usr := User{ID: "8a4d3c67-0f6e-4a8e-9a51-4c2cbd0a2d11"}
	id, err := decodeUID(EncodeUID(usr))
	if err != nil {
		t.Fatalf("decodeUID(): %v", err)
	}
	if id != usr.ID {
		t.Errorf("decodeUID() = %s; want %s", id, usr.ID)
	}
	if _, err = decodeUID("!!"); err == nil {
		t.Error("decodeUID() expected an error for invalid input")
	}
}
