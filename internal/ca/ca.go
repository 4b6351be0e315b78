// Package ca implements the internal Certificate Authority that signs
// per-device client certificates during provisioning.
package ca

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/vigilia-platform/iotcore/internal/errors"
)

// Authority loads a CA certificate and private key once at startup and
// signs device certificates on demand. It never exposes its own private
// key; only the signed device key/cert pair leaves the process.
type Authority struct {
	cert *x509.Certificate
	key  *rsa.PrivateKey
}

// Load reads a PEM-encoded CA certificate and RSA private key from disk.
// Failure here is fatal at startup: the core cannot provision devices
// without a CA.
func Load(certPath, keyPath string) (*Authority, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "reading CA certificate")
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "reading CA private key")
	}

	certBlock, _ := pem.Decode(certPEM)
	if certBlock == nil {
		return nil, errors.New(errors.KindInternal, "CA certificate file is not valid PEM")
	}
	cert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "parsing CA certificate")
	}

	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil {
		return nil, errors.New(errors.KindInternal, "CA key file is not valid PEM")
	}
	key, err := x509.ParsePKCS1PrivateKey(keyBlock.Bytes)
	if err != nil {
		parsed, err2 := x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
		if err2 != nil {
			return nil, errors.Wrap(err, errors.KindInternal, "parsing CA private key")
		}
		rsaKey, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New(errors.KindInternal, "CA private key is not RSA")
		}
		key = rsaKey
	}

	return &Authority{cert: cert, key: key}, nil
}

// SignedCert is the PEM-encoded material returned to a device exactly once.
type SignedCert struct {
	CertificatePEM string
	PrivateKeyPEM  string
	CommonName     string
	Expiry         time.Time
}

// SignDeviceCert issues a 2048-bit RSA client certificate for deviceID
// under agencyID, valid for validityDays.
func (a *Authority) SignDeviceCert(deviceID, agencyID uuid.UUID, validityDays int) (*SignedCert, error) {
	if validityDays <= 0 {
		validityDays = 365
	}

	deviceKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "generating device key")
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "generating certificate serial")
	}

	cn := "device_" + deviceID.String()
	now := time.Now().UTC()
	expiry := now.AddDate(0, 0, validityDays)

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   cn,
			Organization: []string{"agency_" + agencyID.String()},
		},
		NotBefore:             now,
		NotAfter:              expiry,
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  false,
		SignatureAlgorithm:    x509.SHA256WithRSA,
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, template, a.cert, &deviceKey.PublicKey, a.key)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "signing device certificate")
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: derBytes})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(deviceKey)})

	return &SignedCert{
		CertificatePEM: string(certPEM),
		PrivateKeyPEM:  string(keyPEM),
		CommonName:     cn,
		Expiry:         expiry,
	}, nil
}
