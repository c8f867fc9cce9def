package models

// Credential is the per-user cryptographic material, 1:1 with User. The
// server never derives anything from these fields: salts and wrapped keys
// are opaque client-produced strings, and AuthKeyHash is only ever checked
// for constant-time equality. The record is replaced as a whole during
// password rotation, never field by field.
type Credential struct {
	UserID                  int64
	Salt                    string
	AuthSalt                string
	EncSalt                 string
	MasterKeySalt           string
	AuthKeyHash             string
	EncryptedMasterKey      string
	EncryptedMasterKeyIV    string
	PublicKey               string
	EncryptedPrivateKey     string
	EncryptedPrivateKeyIV   string
	EncryptedPrivateKeySalt string
}
