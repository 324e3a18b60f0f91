package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLoginStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var creds map[string]string
		json.NewDecoder(r.Body).Decode(&creds)
		if creds["username"] != "alice" || creds["password"] != "secret" {
			t.Errorf("credentials = %v", creds)
		}
		w.Write([]byte(`{"token": "tok123", "username": "alice"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	result, err := c.Login(context.Background(), "alice", "secret")
	if err != nil {
		t.Fatalf("Login() err = %v", err)
	}
	if result.Token != "tok123" || result.Username != "alice" {
		t.Errorf("result = %+v", result)
	}
	if c.Token != "tok123" {
		t.Error("client did not store the token")
	}
}

func TestRegisterAccepts201(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/register" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"token": "tok456", "username": "bob"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	result, err := c.Register(context.Background(), "bob", "secret")
	if err != nil {
		t.Fatalf("Register() err = %v", err)
	}
	if result.Token != "tok456" {
		t.Errorf("result = %+v", result)
	}
}

func TestAuthFailureSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "invalid username or password"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Login(context.Background(), "alice", "wrong")
	if err == nil {
		t.Fatal("Login() err = nil for 401")
	}
	if err.Error() != "invalid username or password" {
		t.Errorf("err = %q", err)
	}
	if c.Token != "" {
		t.Error("token set on failed login")
	}
}

func TestUsersSendsTokenAndQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.URL.Query().Get("q"); got != "ali" {
			t.Errorf("q = %q", got)
		}
		w.Write([]byte(`[{"username": "alice", "is_online": true}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.Token = "tok"
	users, err := c.Users(context.Background(), "ali")
	if err != nil {
		t.Fatalf("Users() err = %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("got %d users", len(users))
	}
	if users[0].Username != "alice" || !users[0].Online {
		t.Errorf("users[0] = %+v", users[0])
	}
}

func TestUsersErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Users(context.Background(), "")
	if err == nil {
		t.Fatal("Users() err = nil for 500")
	}
	if err.Error() != "server returned 500" {
		t.Errorf("err = %q", err)
	}
}
