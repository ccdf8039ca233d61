package certs

import "crypto/tls"

// MockManager is a Manager with a fixed answer.
type MockManager struct {
	Err         error
	File        string
	Certificate tls.Certificate
	Calls       int
}

// Ensure returns the configured certificate or error.
func (m *MockManager) Ensure() (tls.Certificate, error) {
	m.Calls++
	if m.Err != nil {
		return tls.Certificate{}, m.Err
	}
	return m.Certificate, nil
}

// CertFile returns File.
func (m *MockManager) CertFile() string { return m.File }
