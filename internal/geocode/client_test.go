package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressName(t *testing.T) {
	a := Address{Amenity: "Campo do Sporting", Road: "Rua A", Neighbourhood: "Alvalade", Town: "Lisboa"}
	assert.Equal(t, "Campo do Sporting, Rua A, Alvalade, Lisboa", a.Name())

	b := Address{Leisure: "Pitch", Suburb: "Benfica", City: "Lisboa"}
	assert.Equal(t, "Pitch, Benfica, Lisboa", b.Name())

	assert.Equal(t, "", Address{}.Name())
}

func TestReverse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "38.72", r.URL.Query().Get("lat"))
		assert.Equal(t, "-9.14", r.URL.Query().Get("lon"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		_, _ = w.Write([]byte(`{"address":{"road":"Avenida da Liberdade","town":"Lisboa"}}`))
	}))
	defer srv.Close()

	name, err := NewClient(srv.URL).Reverse(context.Background(), 38.72, -9.14)
	require.NoError(t, err)
	assert.Equal(t, "Avenida da Liberdade, Lisboa", name)
}

func TestReverseRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"address":{"road":"Rua B"}}`))
	}))
	defer srv.Close()

	name, err := NewClient(srv.URL).Reverse(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "Rua B", name)
	assert.Equal(t, int32(3), calls.Load())
}

func TestReverseGivesUpAfterThreeAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Reverse(context.Background(), 1, 2)
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestReverseDoesNotRetryMissingAddress(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"error":"Unable to geocode"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Reverse(context.Background(), 0, 0)
	assert.ErrorIs(t, err, ErrNoAddress)
	assert.Equal(t, int32(1), calls.Load())
}
