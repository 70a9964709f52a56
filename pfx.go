package keyvault

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"

	"golang.org/x/crypto/pkcs12"
)

// X509Certificate parses the issued certificate bytes (DER) into an
// x509.Certificate. Returns ErrMalformedInput while issuance is still
// pending and Cer is empty.
func (crt *Certificate) X509Certificate() (*x509.Certificate, error) {
	if !crt.Issued() {
		return nil, fmt.Errorf("%w: certificate %q has no issued bytes", ErrMalformedInput, crt.h.name)
	}
	parsed, err := x509.ParseCertificate(crt.Cer)
	if err != nil {
		return nil, fmt.Errorf("%w: parse certificate DER: %w", ErrMalformedInput, err)
	}
	return parsed, nil
}

// Export fetches the managed secret backing the named certificate and
// parses it into a tls.Certificate with the private key attached. The
// secret's content type decides the parser: PEM text or base64 PKCS#12
// (password optional, Key Vault stores exported PFX unprotected).
//
// Parsing happens entirely client-side; no cryptographic computation
// is performed.
func (cc *CertificatesClient) Export(ctx context.Context, name, password string) (*tls.Certificate, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}

	secret, err := cc.c.Secrets().Get(ctx, name, "")
	if err != nil {
		return nil, err
	}

	switch secret.ContentType {
	case ContentTypePEM:
		return pemToTLS([]byte(secret.Value))
	case ContentTypePKCS12, "":
		raw, err := base64.StdEncoding.DecodeString(secret.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: certificate secret is not base64 PKCS#12: %w", ErrMalformedInput, err)
		}
		return DecodePFX(raw, password)
	default:
		return nil, fmt.Errorf("%w: unsupported certificate content type %q", ErrMalformedInput, secret.ContentType)
	}
}

// DecodePFX parses PKCS#12 (PFX) bytes into a tls.Certificate. It
// converts through PEM so multi-entry archives (leaf plus chain) are
// handled.
func DecodePFX(data []byte, password string) (*tls.Certificate, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: PFX data cannot be empty", ErrMalformedInput)
	}

	blocks, err := pkcs12.ToPEM(data, password)
	if err != nil {
		return nil, fmt.Errorf("%w: parse PFX: %w", ErrMalformedInput, err)
	}

	var pemData []byte
	for _, block := range blocks {
		pemData = append(pemData, pem.EncodeToMemory(block)...)
	}
	return pemToTLS(pemData)
}

// pemToTLS assembles certificate and key PEM blocks into a
// tls.Certificate.
func pemToTLS(pemData []byte) (*tls.Certificate, error) {
	var certPEM, keyPEM []byte
	rest := pemData
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		encoded := pem.EncodeToMemory(block)
		if block.Type == "CERTIFICATE" {
			certPEM = append(certPEM, encoded...)
		} else {
			keyPEM = append(keyPEM, encoded...)
		}
	}
	if len(certPEM) == 0 {
		return nil, fmt.Errorf("%w: no certificate block in material", ErrMalformedInput)
	}
	if len(keyPEM) == 0 {
		return nil, fmt.Errorf("%w: no private key block in material", ErrMalformedInput)
	}

	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: assemble key pair: %w", ErrMalformedInput, err)
	}
	return &pair, nil
}
