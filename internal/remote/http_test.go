// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package remote

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	ferr "seedfast/forcebridge/internal/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

// newServer starts a fake API and a client pointed at it.
func newServer(t *testing.T, handler http.HandlerFunc) (*HTTP, Session) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Credentials{
		LoginURL:      srv.URL,
		Username:      "jane@example.com",
		Password:      "hunter2",
		SecurityToken: "TKN",
		ClientID:      "client-1",
		ClientSecret:  "s3cr3t",
	}, Options{})
	require.NoError(t, err)
	return c, Session{Token: "00Dsession", InstanceURL: srv.URL}
}

func TestNew_RequiresLoginURL(t *testing.T) {
	_, err := New(Credentials{Username: "x"}, Options{})
	require.Error(t, err)
	assert.True(t, ferr.IsKind(err, ferr.Configuration))
}

func TestLogin_PasswordFlow(t *testing.T) {
	var srvURL string
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/services/oauth2/token", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		assert.Equal(t, "jane@example.com", r.PostForm.Get("username"))
		assert.Equal(t, "hunter2TKN", r.PostForm.Get("password"))
		assert.Equal(t, "client-1", r.PostForm.Get("client_id"))
		assert.Equal(t, "s3cr3t", r.PostForm.Get("client_secret"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		io.WriteString(w, `{"access_token":"00Dnew","instance_url":"`+srvURL+`","token_type":"Bearer"}`)
	})
	srvURL = c.creds.LoginURL

	s, err := c.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "00Dnew", s.Token)
	assert.Equal(t, srvURL, s.InstanceURL)
	assert.False(t, s.AcquiredAt.IsZero())
}

func TestLogin_RejectedCredentials(t *testing.T) {
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":"invalid_grant","error_description":"authentication failure"}`)
	})

	_, err := c.Login(context.Background())
	require.Error(t, err)
	assert.True(t, ferr.IsKind(err, ferr.Authentication))
	assert.Contains(t, err.Error(), "invalid_grant")
	assert.NotContains(t, err.Error(), "hunter2")
}

func TestLogin_MissingInstanceURL(t *testing.T) {
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"access_token":"x"}`)
	})
	_, err := c.Login(context.Background())
	assert.True(t, ferr.IsKind(err, ferr.Authentication))
}

func TestLogin_JWTBearerFlow(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, jwtBearerGrant, r.PostForm.Get("grant_type"))
		assert.Empty(t, r.PostForm.Get("password"))

		claims := &jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(r.PostForm.Get("assertion"), claims, func(*jwt.Token) (any, error) {
			return &key.PublicKey, nil
		}, jwt.WithValidMethods([]string{"RS256"}))
		assert.NoError(t, err)
		assert.Equal(t, "client-1", claims.Issuer)
		assert.Equal(t, "jane@example.com", claims.Subject)
		io.WriteString(w, `{"access_token":"00Djwt","instance_url":"https://na1.example.com"}`)
	}))
	defer srv.Close()

	c, err := New(Credentials{LoginURL: srv.URL, Username: "jane@example.com", ClientID: "client-1", JWTKey: pemKey}, Options{})
	require.NoError(t, err)

	s, err := c.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "00Djwt", s.Token)
}

func TestLogin_BadJWTKey(t *testing.T) {
	c, err := New(Credentials{LoginURL: "https://login.example.com", Username: "u", ClientID: "c", JWTKey: []byte("nope")}, Options{})
	require.NoError(t, err)
	_, err = c.Login(context.Background())
	assert.True(t, ferr.IsKind(err, ferr.Configuration))
}

func TestQuery_FollowsPages(t *testing.T) {
	c, s := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer 00Dsession", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/services/data/v59.0/query":
			assert.Equal(t, "SELECT Id, Name FROM Account", r.URL.Query().Get("q"))
			io.WriteString(w, `{"totalSize":3,"done":false,"nextRecordsUrl":"/services/data/v59.0/query/01g-2000","records":[
				{"attributes":{"type":"Account","url":"/x/1"},"Id":"001A","Name":"Acme"},
				{"attributes":{"type":"Account","url":"/x/2"},"Id":"001B","Name":"Globex"}]}`)
		case "/services/data/v59.0/query/01g-2000":
			io.WriteString(w, `{"totalSize":3,"done":true,"records":[{"attributes":{"type":"Account"},"Id":"001C","Name":"Initech"}]}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	recs, err := c.Query(context.Background(), s, "SELECT Id, Name FROM Account")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "Account", recs[2].Type)
	assert.Equal(t, "001C", recs[2].ID)
	assert.Equal(t, []string{"Id", "Name"}, recs[0].Names())
	assert.Equal(t, "Globex", recs[1].Fields["Name"])
}

func TestQueryAll_UsesQueryAllEndpoint(t *testing.T) {
	c, s := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/services/data/v59.0/queryAll", r.URL.Path)
		io.WriteString(w, `{"totalSize":0,"done":true,"records":[]}`)
	})
	recs, err := c.QueryAll(context.Background(), s, "SELECT Id FROM Task")
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestQuery_ProtocolViolations(t *testing.T) {
	bodies := map[string]string{
		"records object": `{"totalSize":1,"done":true,"records":{"Id":"1"}}`,
		"array result":   `[{"Id":"1"}]`,
		"records null":   `{"totalSize":0,"done":true,"records":null}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			c, s := newServer(t, func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, body) })
			_, err := c.Query(context.Background(), s, "SELECT Id FROM Account")
			require.Error(t, err)
			assert.True(t, ferr.IsKind(err, ferr.ProtocolViolation), "got %v", err)
		})
	}
}

func TestCreate_RequestBody(t *testing.T) {
	var body []byte
	c, s := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/services/data/v59.0/composite/sobjects", r.URL.Path)
		assert.Equal(t, "TRUE", r.Header.Get("Sforce-Auto-Assign"))
		body, _ = io.ReadAll(r.Body)
		io.WriteString(w, `[{"id":"003NEW","success":true,"errors":[]}]`)
	})

	rec := NewRecord("Contact")
	rec.Set("FirstName", "Jane")
	rec.Set("LastName", "Doe")
	res, err := c.Create(context.Background(), s, []Record{rec}, CallOptions{AutoAssign: true})
	require.NoError(t, err)
	newGoldie(t).Assert(t, "create_contact", body)
	require.Len(t, res, 1)
	assert.True(t, res[0].Success)
	assert.Equal(t, "003NEW", res[0].ID)
}

func TestUpdate_RequestBodyCarriesNulls(t *testing.T) {
	var body []byte
	c, s := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Empty(t, r.Header.Get("Sforce-Auto-Assign"))
		body, _ = io.ReadAll(r.Body)
		io.WriteString(w, `[{"id":"003000000000001","success":false,"errors":[{"statusCode":"INVALID_EMAIL_ADDRESS","message":"bad email","fields":["Email"]}]}]`)
	})

	rec := NewRecord("Contact")
	rec.ID = "003000000000001"
	rec.Set("Phone", "555-1212")
	rec.FieldsToNull = []string{"Email"}
	res, err := c.Update(context.Background(), s, []Record{rec}, CallOptions{})
	require.NoError(t, err)
	newGoldie(t).Assert(t, "update_contact", body)
	require.Len(t, res, 1)
	assert.False(t, res[0].Success)
	assert.Equal(t, "INVALID_EMAIL_ADDRESS", res[0].Errors[0].StatusCode)
}

func TestSave_ShapeViolations(t *testing.T) {
	bodies := map[string]string{
		"object instead of array": `{"id":"1","success":true}`,
		"count mismatch":          `[{"id":"1","success":true},{"id":"2","success":true}]`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			c, s := newServer(t, func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, body) })
			_, err := c.Create(context.Background(), s, []Record{NewRecord("Lead")}, CallOptions{})
			assert.True(t, ferr.IsKind(err, ferr.ProtocolViolation), "got %v", err)
		})
	}
}

func TestDelete_SendsIDs(t *testing.T) {
	c, s := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "003A,003B", r.URL.Query().Get("ids"))
		assert.Equal(t, "false", r.URL.Query().Get("allOrNone"))
		io.WriteString(w, `[{"id":"003A","success":true,"errors":[]},{"success":false,"errors":[{"statusCode":"ENTITY_IS_DELETED","message":"gone"}]}]`)
	})

	res, err := c.Delete(context.Background(), s, []string{"003A", "003B"}, CallOptions{})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.True(t, res[0].Success)
	assert.Equal(t, "ENTITY_IS_DELETED", res[1].Errors[0].StatusCode)
}

func TestRetrieve_MissingRecordsAreNil(t *testing.T) {
	c, s := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/services/data/v59.0/composite/sobjects/Contact", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"ids":["003A","003B"],"fields":["Id","LastName"]}`, string(body))
		io.WriteString(w, `[{"attributes":{"type":"Contact"},"Id":"003A","LastName":"Doe"},null]`)
	})

	recs, err := c.Retrieve(context.Background(), s, "Contact", []string{"003A", "003B"}, []string{"Id", "LastName"})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Doe", recs[0].Fields["LastName"])
	assert.Nil(t, recs[1])
}

func TestDescribeObject(t *testing.T) {
	c, s := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/services/data/v59.0/sobjects/Contact/describe", r.URL.Path)
		io.WriteString(w, `{"name":"Contact","fields":[{"name":"Id","type":"id","soapType":"tns:ID","createable":false,"updateable":false}]}`)
	})
	d, err := c.DescribeObject(context.Background(), s, "Contact")
	require.NoError(t, err)
	assert.Equal(t, "Contact", d.Name)
	require.Len(t, d.Fields, 1)
	assert.Equal(t, "tns:ID", d.Fields[0].SoapType)
}

func TestExpiredSession(t *testing.T) {
	c, s := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `[{"message":"Session expired or invalid","errorCode":"INVALID_SESSION_ID"}]`)
	})
	_, err := c.DescribeObject(context.Background(), s, "Contact")
	require.Error(t, err)
	assert.True(t, IsSessionExpired(err))
	assert.True(t, ferr.IsKind(err, ferr.Authentication))
	assert.True(t, strings.Contains(err.Error(), "INVALID_SESSION_ID"))
}

func TestServerError_IsTransport(t *testing.T) {
	c, s := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, "maintenance")
	})
	_, err := c.Query(context.Background(), s, "SELECT Id FROM Account")
	assert.True(t, ferr.IsKind(err, ferr.Transport))
	assert.False(t, IsSessionExpired(err))
}
