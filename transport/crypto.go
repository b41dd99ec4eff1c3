package transport

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// aeadSuite names one of the four TLS 1.3 cipher suites QUIC draft-27
// allows (spec.md §4.6). suiteAES128CCM is declared but seal.init rejects it.
type aeadSuite int

const (
	suiteAES128GCM aeadSuite = iota
	suiteAES256GCM
	suiteChaCha20Poly1305
	suiteAES128CCM
)

const (
	sampleLength  = 16 // bytes of ciphertext sampled for header protection
	maxPNLength   = 4
)

// initialSalt is the draft-27 salt used to derive Initial secrets
// (spec.md §6 "Initial secret derivation").
var initialSalt = []byte{
	0xc3, 0xee, 0xf7, 0x12, 0xc7, 0x2e, 0xbb, 0x5a,
	0x11, 0xa7, 0xd2, 0x43, 0x2b, 0xb4, 0x63, 0x65,
	0xbe, 0xf9, 0xf5, 0x02,
}

// seal bundles the keying material needed to protect or remove protection
// from one direction of one encryption level (C5).
type seal struct {
	suite  aeadSuite
	aead   cipher.AEAD
	iv     []byte // 12 bytes
	hpKey  []byte
	hpBlk  cipher.Block // for AES suites; nil for ChaCha20
	secret []byte       // retained so update() can derive the next generation
}

// init derives a seal's key, IV and header-protection key from a
// traffic secret, per RFC 9001 §5.1.
func (s *seal) init(suite aeadSuite, secret []byte) error {
	s.suite = suite
	s.secret = append([]byte(nil), secret...)
	var keyLen int
	switch suite {
	case suiteAES128GCM:
		keyLen = 16
	case suiteAES256GCM:
		keyLen = 32
	case suiteChaCha20Poly1305:
		keyLen = 32
	case suiteAES128CCM:
		keyLen = 16
	}
	key := hkdfExpandLabel(secret, "quic key", nil, keyLen)
	s.iv = hkdfExpandLabel(secret, "quic iv", nil, 12)
	s.hpKey = hkdfExpandLabel(secret, "quic hp", nil, keyLen)

	switch suite {
	case suiteAES128GCM, suiteAES256GCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return err
		}
		aeadCipher, err := cipher.NewGCM(block)
		if err != nil {
			return err
		}
		s.aead = aeadCipher
		hpBlock, err := aes.NewCipher(s.hpKey)
		if err != nil {
			return err
		}
		s.hpBlk = hpBlock
	case suiteChaCha20Poly1305:
		aeadCipher, err := chacha20poly1305.New(key)
		if err != nil {
			return err
		}
		s.aead = aeadCipher
	case suiteAES128CCM:
		// Neither the standard library nor golang.org/x/crypto exposes an
		// AES-CCM AEAD (see DESIGN.md); negotiating this suite fails
		// cleanly rather than silently falling back to GCM.
		return newError(InternalError, "AES-CCM-128 suite not supported by this build")
	}
	return nil
}

// update derives the next generation's traffic secret per RFC 9001 §6
// (HKDF-Expand-Label("quic ku")) and returns a new seal. The header
// protection key is unaffected by key updates.
func (s *seal) update() (*seal, error) {
	next := hkdfExpandLabel(s.secret, "quic ku", nil, len(s.secret))
	ns := &seal{}
	if err := ns.init(s.suite, next); err != nil {
		return nil, err
	}
	ns.hpKey = s.hpKey
	ns.hpBlk = s.hpBlk
	return ns, nil
}

func (s *seal) nonce(pn uint64) []byte {
	n := append([]byte(nil), s.iv...)
	var pnBytes [8]byte
	binary.BigEndian.PutUint64(pnBytes[:], pn)
	for i := 0; i < 8; i++ {
		n[len(n)-8+i] ^= pnBytes[i]
	}
	return n
}

// encryptPacket seals payload in place: b[pnOffset+pnLen:payloadEnd] holds
// the plaintext payload (including any frames) and is overwritten with
// ciphertext+tag (spec.md §4.6).
func (s *seal) encryptPacket(b []byte, pnOffset, pnLen, payloadStart, payloadEnd int, fullPN uint64) []byte {
	aad := b[:payloadStart]
	plain := b[payloadStart:payloadEnd]
	nonce := s.nonce(fullPN)
	return s.aead.Seal(b[:payloadStart], nonce, plain, aad)
}

// decryptPacket opens the payload in place and returns the plaintext.
func (s *seal) decryptPacket(b []byte, payloadStart int, fullPN uint64) ([]byte, error) {
	aad := b[:payloadStart]
	ciphertext := b[payloadStart:]
	nonce := s.nonce(fullPN)
	plain, err := s.aead.Open(ciphertext[:0], nonce, ciphertext, aad)
	if err != nil {
		return nil, errDrop
	}
	return plain, nil
}

// headerProtectionMask derives the 5-byte mask from a ciphertext sample
// (spec.md §4.6 / §GLOSSARY "Header protection").
func (s *seal) headerProtectionMask(sample []byte) [5]byte {
	var mask [5]byte
	switch s.suite {
	case suiteAES128GCM, suiteAES256GCM:
		var out [16]byte
		s.hpBlk.Encrypt(out[:], sample)
		copy(mask[:], out[:5])
	case suiteChaCha20Poly1305:
		counter := binary.LittleEndian.Uint32(sample[:4])
		nonce := sample[4:16]
		var zero [5]byte
		c, _ := chacha20.NewUnauthenticatedCipher(s.hpKey, nonce)
		c.SetCounter(counter)
		c.XORKeyStream(mask[:], zero[:])
	}
	return mask
}

// protectHeader XORs the first-byte low bits and the truncated PN with
// the derived mask (spec.md §4.6). isLongHeader selects a 4-bit vs 5-bit
// mask on the first byte.
func (s *seal) protectHeader(b []byte, pnOffset, pnLen int, isLongHeader bool) {
	sampleOffset := pnOffset + maxPNLength
	if sampleOffset+sampleLength > len(b) {
		sampleOffset = len(b) - sampleLength
	}
	mask := s.headerProtectionMask(b[sampleOffset : sampleOffset+sampleLength])
	if isLongHeader {
		b[0] ^= mask[0] & 0x0f
	} else {
		b[0] ^= mask[0] & 0x1f
	}
	for i := 0; i < pnLen; i++ {
		b[pnOffset+i] ^= mask[i+1]
	}
}

// unprotectHeader inverts protectHeader. The caller must first read
// pnLen from the (still-masked) first byte after applying only the low
// nibble/quintet of the mask, per RFC 9001 §5.4.1; this helper performs
// both steps and returns the recovered pnLen.
func (s *seal) unprotectHeader(b []byte, pnOffset int, isLongHeader bool) int {
	sampleOffset := pnOffset + maxPNLength
	if sampleOffset+sampleLength > len(b) {
		sampleOffset = len(b) - sampleLength
	}
	mask := s.headerProtectionMask(b[sampleOffset : sampleOffset+sampleLength])
	if isLongHeader {
		b[0] ^= mask[0] & 0x0f
	} else {
		b[0] ^= mask[0] & 0x1f
	}
	pnLen := int(b[0]&0x03) + 1
	for i := 0; i < pnLen; i++ {
		b[pnOffset+i] ^= mask[i+1]
	}
	return pnLen
}

// hkdfExpandLabel implements HKDF-Expand-Label from RFC 8446 §7.1, used
// throughout RFC 9001 key derivation.
func hkdfExpandLabel(secret []byte, label string, context []byte, length int) []byte {
	fullLabel := "tls13 " + label
	info := make([]byte, 0, 2+1+len(fullLabel)+1+len(context))
	info = append(info, byte(length>>8), byte(length))
	info = append(info, byte(len(fullLabel)))
	info = append(info, fullLabel...)
	info = append(info, byte(len(context)))
	info = append(info, context...)

	out := make([]byte, length)
	r := hkdf.Expand(sha256.New, secret, info)
	_, _ = r.Read(out)
	return out
}

// initialAEAD derives the client/server Initial seals from a destination
// connection ID, per RFC 9001 §5.2.
type initialAEAD struct {
	client seal
	server seal
}

func (a *initialAEAD) init(dcid []byte) {
	initialSecret := hkdf.Extract(sha256.New, dcid, initialSalt)
	clientSecret := hkdfExpandLabel(initialSecret, "client in", nil, 32)
	serverSecret := hkdfExpandLabel(initialSecret, "server in", nil, 32)
	a.client.init(suiteAES128GCM, clientSecret)
	a.server.init(suiteAES128GCM, serverSecret)
}
