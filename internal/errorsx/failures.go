package errorsx

//
// Failure strings and operations
//

// These are the failure strings for system errors.
const (
	FailureAddressInUse       = "address_in_use"
	FailureBadFileDescriptor  = "bad_file_descriptor"
	FailureConnectionAborted  = "connection_aborted"
	FailureConnectionRefused  = "connection_refused"
	FailureConnectionReset    = "connection_reset"
	FailureHostUnreachable    = "host_unreachable"
	FailureNetworkDown        = "network_down"
	FailureNetworkUnreachable = "network_unreachable"
	FailureNotConnected       = "not_connected"
	FailurePermissionDenied   = "permission_denied"
	FailureTimedOut           = "timed_out"
)

// These are the failure strings for library errors.
const (
	FailureConnectionAlreadyClosed = "connection_already_closed"
	FailureDecryptError            = "decrypt_error"
	FailureEOFError                = "eof_error"
	FailureFileNotFound            = "file_not_found"
	FailureGenericTimeoutError     = "generic_timeout_error"
	FailureInterrupted             = "interrupted"
	FailureInvalidConfiguration    = "invalid_configuration"
	FailureInvalidState            = "invalid_state"
	FailureSSLFailedHandshake      = "ssl_failed_handshake"
	FailureSSLInvalidCertificate   = "ssl_invalid_certificate"
	FailureSSLInvalidHostname      = "ssl_invalid_hostname"
	FailureSSLInvalidRecord        = "ssl_invalid_record"
	FailureSSLUnknownAuthority     = "ssl_unknown_authority"
	FailureSSLUnsupportedVersion   = "ssl_unsupported_version"
)

// These are the operations that can fail.
const (
	AcceptOperation       = "accept"
	AttachOperation       = "tls_attach"
	BuildKeyPairOperation = "build_keypair"
	CloseOperation        = "close"
	ConnectOperation      = "connect"
	DetachOperation       = "tls_detach"
	ListenOperation       = "listen"
	LoadFileOperation     = "load_file"
	LoadCAOperation       = "load_ca"
	LookupOperation       = "lookup"
	ReadOperation         = "read"
	TLSHandshakeOperation = "tls_handshake"
	WriteOperation        = "write"
)
