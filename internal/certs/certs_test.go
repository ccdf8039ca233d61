package certs

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaf(t *testing.T, cert tls.Certificate) *x509.Certificate {
	t.Helper()
	require.Len(t, cert.Certificate, 1)
	parsed, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	return parsed
}

func TestEnsure(t *testing.T) {
	tests := []struct {
		setup func(t *testing.T, m *FileManager) *x509.Certificate
		check func(t *testing.T, before, after *x509.Certificate)
		name  string
	}{
		{
			name:  "creates a certificate when none exists",
			setup: func(*testing.T, *FileManager) *x509.Certificate { return nil },
			check: func(t *testing.T, _, after *x509.Certificate) {
				assert.Equal(t, "schoolctl sandbox", after.Subject.Organization[0])
				assert.Contains(t, after.DNSNames, "localhost")
				assert.NoError(t, after.VerifyHostname("127.0.0.1"))
				assert.WithinDuration(t, time.Now().Add(Validity), after.NotAfter, time.Hour)
			},
		},
		{
			name: "reuses a valid certificate",
			setup: func(t *testing.T, m *FileManager) *x509.Certificate {
				cert, err := m.Ensure()
				require.NoError(t, err)
				return leaf(t, cert)
			},
			check: func(t *testing.T, before, after *x509.Certificate) {
				assert.Equal(t, before.SerialNumber, after.SerialNumber)
			},
		},
		{
			name: "replaces an expired certificate",
			setup: func(t *testing.T, m *FileManager) *x509.Certificate {
				m.now = func() time.Time { return time.Now().Add(-2 * Validity) }
				cert, err := m.Ensure()
				require.NoError(t, err)
				m.now = time.Now
				return leaf(t, cert)
			},
			check: func(t *testing.T, before, after *x509.Certificate) {
				assert.NotEqual(t, before.SerialNumber, after.SerialNumber)
				assert.True(t, after.NotAfter.After(time.Now()))
			},
		},
		{
			name: "replaces unreadable files",
			setup: func(t *testing.T, m *FileManager) *x509.Certificate {
				require.NoError(t, os.MkdirAll(m.dir, 0700))
				require.NoError(t, os.WriteFile(m.certFile, []byte("garbage"), 0600))
				require.NoError(t, os.WriteFile(m.keyFile, []byte("garbage"), 0600))
				return nil
			},
			check: func(t *testing.T, _, after *x509.Certificate) {
				assert.NotNil(t, after)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewFileManager(filepath.Join(t.TempDir(), "certs"))
			before := tt.setup(t, m)

			cert, err := m.Ensure()
			require.NoError(t, err)
			tt.check(t, before, leaf(t, cert))

			info, err := os.Stat(m.keyFile)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
		})
	}
}

func TestLoadPoolTrustsSandboxCertificate(t *testing.T) {
	m := NewFileManager(t.TempDir())
	cert, err := m.Ensure()
	require.NoError(t, err)

	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	srv.TLS = &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
	srv.StartTLS()
	defer srv.Close()

	pool, err := LoadPool(m.CertFile())
	require.NoError(t, err)
	client := &http.Client{Transport: &http.Transport{TLSClientConfig: &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}}}

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = (&http.Client{}).Get(srv.URL)
	assert.Error(t, err)
}

func TestLoadPoolErrors(t *testing.T) {
	_, err := LoadPool(filepath.Join(t.TempDir(), "missing.crt"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.crt")
	require.NoError(t, os.WriteFile(empty, []byte("not pem"), 0600))
	_, err = LoadPool(empty)
	assert.ErrorContains(t, err, "no certificates")
}
