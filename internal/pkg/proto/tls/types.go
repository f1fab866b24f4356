package tls

// Record types (TLS record layer ContentType).
const (
	RecordTypeChangeCipherSpec = 20
	RecordTypeAlert            = 21
	RecordTypeHandshake        = 22
	RecordTypeApplicationData  = 23
	RecordTypeHeartbeat        = 24
)

// Handshake message types.
const (
	HandshakeTypeClientHello        = 1
	HandshakeTypeServerHello        = 2
	HandshakeTypeCertificate        = 11
	HandshakeTypeServerKeyExchange  = 12
	HandshakeTypeCertificateRequest = 13
	HandshakeTypeServerHelloDone    = 14
	HandshakeTypeCertificateVerify  = 15
	HandshakeTypeClientKeyExchange  = 16
	HandshakeTypeFinished           = 20
)

// Protocol versions, as carried in the record header and ClientHello/
// ServerHello bodies.
const (
	VersionSSL30 = 0x0300
	VersionTLS10 = 0x0301
	VersionTLS11 = 0x0302
	VersionTLS12 = 0x0303
	VersionTLS13 = 0x0304
)

const (
	extensionSNI          = 0
	extensionSupportedVer = 43
)

// HandshakePayload is the common event payload for every handshake-stage
// event; fields not meaningful for a given stage are left zero.
type HandshakePayload struct {
	Stage          string
	Version        uint16
	SessionID      []byte
	CipherSuites   []uint16
	SelectedCipher uint16
	SNI            string
	Extensions     []uint16
}

// ApplicationDataPayload is the APPLICATION_DATA event payload: only the
// length is reported, since the bytes are opaque without the session
// keys (spec.md's Non-goal on decrypting application data).
type ApplicationDataPayload struct {
	Length int
}
