// Copyright (c) Microsoft. All rights reserved.

package search_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jochenvw/toolcompare/search"
)

func clientOptions(ts *httptest.Server) *search.ClientOptions {
	return &search.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Transport: ts.Client(),
			Retry:     policy.RetryOptions{MaxRetries: -1},
		},
	}
}

func TestSearch_SendsQueryAndDecodesDocuments(t *testing.T) {
	var (
		gotPath    string
		gotVersion string
		gotKey     string
		gotBody    map[string]any
	)
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotVersion = r.URL.Query().Get("api-version")
		gotKey = r.Header.Get("api-key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"value":[
			{"@search.score": 1.5, "HotelName": "Sea View", "Rating": 4.5},
			{"@search.score": 1.1, "HotelName": "Dune Inn", "Rating": 3.9}
		]}`))
	}))
	defer ts.Close()

	client, err := search.NewClientWithKey(ts.URL, "hotels-sample-index",
		azcore.NewKeyCredential("secret"), clientOptions(ts))
	require.NoError(t, err)

	docs, err := client.Search(context.Background(), "beach", &search.QueryOptions{
		Top:    2,
		Select: []string{"HotelName", "Rating"},
	})
	require.NoError(t, err)

	assert.Equal(t, "/indexes/hotels-sample-index/docs/search", gotPath)
	assert.Equal(t, search.DefaultAPIVersion, gotVersion)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, map[string]any{"search": "beach", "top": float64(2), "select": "HotelName,Rating"}, gotBody)

	require.Len(t, docs, 2)
	assert.Equal(t, "Sea View", docs[0]["HotelName"])
	assert.Equal(t, 1.5, docs[0]["@search.score"])
}

func TestSearch_ErrorStatus(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":"Forbidden","message":"no access"}}`))
	}))
	defer ts.Close()

	client, err := search.NewClientWithKey(ts.URL, "idx", azcore.NewKeyCredential("bad"), clientOptions(ts))
	require.NoError(t, err)

	_, err = client.Search(context.Background(), "x", nil)
	var respErr *azcore.ResponseError
	require.True(t, errors.As(err, &respErr), "err = %v", err)
	assert.Equal(t, http.StatusForbidden, respErr.StatusCode)
}

type fakeToken struct{ scopes []string }

func (f *fakeToken) GetToken(_ context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	f.scopes = opts.Scopes
	return azcore.AccessToken{Token: "aad", ExpiresOn: time.Now().Add(time.Hour)}, nil
}

func TestSearch_TokenCredential(t *testing.T) {
	var auth string
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"value":[]}`))
	}))
	defer ts.Close()

	cred := &fakeToken{}
	client, err := search.NewClient(ts.URL, "idx", cred, clientOptions(ts))
	require.NoError(t, err)

	docs, err := client.Search(context.Background(), "x", nil)
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Equal(t, "Bearer aad", auth)
	assert.Equal(t, []string{"https://search.azure.com/.default"}, cred.scopes)
}

func TestNewClient_Validation(t *testing.T) {
	_, err := search.NewClientWithKey("", "idx", azcore.NewKeyCredential("k"), nil)
	assert.Error(t, err)
	_, err = search.NewClientWithKey("https://x", "idx", nil, nil)
	assert.Error(t, err)
	_, err = search.NewClient("https://x", "", &fakeToken{}, nil)
	assert.Error(t, err)
}

func TestEndpointForService(t *testing.T) {
	assert.Equal(t, "https://acme.search.windows.net", search.EndpointForService("acme"))
}
