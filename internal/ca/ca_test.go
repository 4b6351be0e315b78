package ca

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/stretchr/testify/assert"
)

func testAuthority(t *testing.T) *Authority {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "test-ca"},
		NotBefore:             time.Now().UTC(),
		NotAfter:              time.Now().UTC().AddDate(10, 0, 0),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return &Authority{cert: cert, key: key}
}

func TestSignDeviceCert(t *testing.T) {
	authority := testAuthority(t)
	deviceID := uuid.New()
	agencyID := uuid.New()

	signed, err := authority.SignDeviceCert(deviceID, agencyID, 30)
	require.NoError(t, err)

	assert.Equal(t, "device_"+deviceID.String(), signed.CommonName)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, 30), signed.Expiry, 5*time.Second)
	assert.Contains(t, signed.CertificatePEM, "BEGIN CERTIFICATE")
	assert.Contains(t, signed.PrivateKeyPEM, "BEGIN RSA PRIVATE KEY")
}

func TestSignDeviceCert_DefaultsValidity(t *testing.T) {
	authority := testAuthority(t)
	signed, err := authority.SignDeviceCert(uuid.New(), uuid.New(), 0)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, 365), signed.Expiry, 5*time.Second)
}
