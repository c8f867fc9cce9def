package httpapi

// apiResponse is the JSON envelope shared by every endpoint.
type apiResponse struct {
	Success   bool     `json:"success"`
	Message   string   `json:"message,omitempty"`
	ErrorCode string   `json:"errorCode,omitempty"`
	Data      any      `json:"data,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

type registerRequest struct {
	Name                    string `json:"name"`
	Surname                 string `json:"surname"`
	Username                string `json:"username"`
	Email                   string `json:"email"`
	Salt                    string `json:"salt"`
	AuthSalt                string `json:"authSalt"`
	EncSalt                 string `json:"encSalt"`
	EncMKSalt               string `json:"encMKSalt"`
	IP                      string `json:"ip"`
	EncryptedMasterKey      string `json:"encryptedMasterKey"`
	EncryptedMasterKeyIV    string `json:"encryptedMasterKeyIv"`
	PublicKey               string `json:"publicKey"`
	HashedAuthenticationKey string `json:"hashedAuthenticationKey"`
	EncryptedPrivateKey     string `json:"encryptedPrivateKey"`
	EncryptedPrivateKeyIV   string `json:"encryptedPrivateKeyIv"`
	EncryptedPrivateKeySalt string `json:"encryptedPrivateKeySalt"`
}

type verifyRequest struct {
	Email            string `json:"email"`
	VerificationCode string `json:"verificationCode"`
}

type resendRequest struct {
	Email string `json:"email"`
}

type loginInitRequest struct {
	Email string `json:"email"`
}

type loginInitResponse struct {
	Salt     string `json:"salt"`
	AuthSalt string `json:"authSalt"`
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
}

type loginAuthRequest struct {
	Email    string `json:"email"`
	AuthHash string `json:"authHash"`
}

type loginResponse struct {
	EncryptedMasterKey      string `json:"encryptedMasterKey"`
	EncryptedMasterKeyIV    string `json:"encryptedMasterKeyIv"`
	SaltMK                  string `json:"saltMk"`
	SaltEncryption          string `json:"saltEncryption"`
	EncryptedPrivateKey     string `json:"encryptedPrivateKey"`
	EncryptedPrivateKeyIV   string `json:"encryptedPrivateKeyIv"`
	EncryptedPrivateKeySalt string `json:"encryptedPrivateKeySalt"`
	SessionID               string `json:"sessionId"`
	Success                 bool   `json:"success"`
	Message                 string `json:"message,omitempty"`
}

type sessionVerificationResponse struct {
	IsValid bool   `json:"isValid"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type passwordUpdateRequest struct {
	Email                   string `json:"email"`
	CurrentAuthHash         string `json:"currentAuthHash"`
	Salt                    string `json:"salt"`
	AuthSalt                string `json:"authSalt"`
	EncSalt                 string `json:"encSalt"`
	HashedAuthenticationKey string `json:"hashedAuthenticationKey"`
	EncryptedMasterKey      string `json:"encryptedMasterKey"`
	EncryptedMasterKeyIV    string `json:"encryptedMasterKeyIv"`
}

type fileUploadRequest struct {
	FileName      string `json:"fileName"`
	FileSizeBytes int64  `json:"fileSizeBytes"`
	ContentType   string `json:"contentType"`
}

type fileUploadResponse struct {
	FileID   int64  `json:"fileId"`
	FileName string `json:"fileName"`
	Success  bool   `json:"success"`
}

type fileTransferRequest struct {
	FileID         int64  `json:"fileId"`
	RecipientEmail string `json:"recipientEmail"`
	NewWrappedKey  string `json:"newWrappedKey"`
	NewKeyIV       string `json:"newKeyIv"`
}

type userFileDTO struct {
	ID            int64  `json:"id"`
	FileName      string `json:"fileName"`
	FileSizeBytes int64  `json:"fileSizeBytes"`
	ContentType   string `json:"contentType"`
	CreatedAt     string `json:"createdAt"`
	Owner         string `json:"owner"`
}

type userFilesResponse struct {
	Files        []userFileDTO `json:"files"`
	HasMoreFiles bool          `json:"hasMoreFiles"`
	CurrentPage  int           `json:"currentPage"`
	TotalFiles   int           `json:"totalFiles"`
}

type fileDetailsResponse struct {
	FileName           string `json:"fileName"`
	FileSize           int64  `json:"fileSize"`
	ContentType        string `json:"contentType"`
	WrappedKey         string `json:"wrappedKey"`
	IV                 string `json:"iv"`
	Tag                string `json:"tag"`
	KeyIV              string `json:"keyIv"`
	SenderPublicKeyHex string `json:"senderPublicKeyHex,omitempty"`
}

type userProfileResponse struct {
	Username         string `json:"username"`
	Name             string `json:"name"`
	Surname          string `json:"surname"`
	Email            string `json:"email"`
	RegistrationDate string `json:"registrationDate"`
	UsedSpaceBytes   int64  `json:"usedSpaceBytes"`
	LimitSpaceBytes  int64  `json:"limitSpaceBytes"`
}

type publicKeyResponse struct {
	PublicKey string `json:"publicKey"`
}
