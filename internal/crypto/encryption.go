package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"unicode/utf8"
)

var (
	// ErrDecodeFailed 密文无法用当前口令解码
	// 调用方应回退为把存储值当作明文处理
	ErrDecodeFailed = errors.New("decode failed: ciphertext cannot be recovered with the configured passphrase")
	// ErrEmptyPassphrase 口令为空
	ErrEmptyPassphrase = errors.New("obfuscation passphrase must not be empty")
)

const (
	saltHeader = "Salted__"
	saltSize   = 8
	keySize    = 32 // AES-256
)

// Encode 使用口令加密字符串
// 输出格式与 OpenSSL `enc -aes-256-cbc -md md5` 及 CryptoJS.AES.encrypt(text, passphrase) 相同:
// Base64("Salted__" + salt[8] + AES-256-CBC(PKCS#7))
// 每次调用使用随机 salt，相同明文产生不同密文
func Encode(plaintext string, passphrase string) (string, error) {
	if passphrase == "" {
		return "", ErrEmptyPassphrase
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	return encodeWithSalt([]byte(plaintext), []byte(passphrase), salt)
}

func encodeWithSalt(plaintext, passphrase, salt []byte) (string, error) {
	key, iv := deriveKeyIV(passphrase, salt)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	out := make([]byte, len(saltHeader)+saltSize+len(padded))
	copy(out, saltHeader)
	copy(out[len(saltHeader):], salt)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[len(saltHeader)+saltSize:], padded)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decode 使用口令解密 Encode 的输出
// 任何格式错误、口令错误或非 UTF-8 结果都返回 ErrDecodeFailed，不会 panic
func Decode(ciphertext string, passphrase string) (string, error) {
	if passphrase == "" || ciphertext == "" {
		return "", ErrDecodeFailed
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrDecodeFailed
	}

	// 至少包含 header、salt 和一个分组
	headerLen := len(saltHeader) + saltSize
	if len(data) < headerLen+aes.BlockSize || !bytes.HasPrefix(data, []byte(saltHeader)) {
		return "", ErrDecodeFailed
	}

	salt := data[len(saltHeader):headerLen]
	body := data[headerLen:]
	if len(body)%aes.BlockSize != 0 {
		return "", ErrDecodeFailed
	}

	key, iv := deriveKeyIV([]byte(passphrase), salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", ErrDecodeFailed
	}

	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)

	plain, ok := pkcs7Unpad(plain, aes.BlockSize)
	if !ok || len(plain) == 0 || !utf8.Valid(plain) {
		return "", ErrDecodeFailed
	}

	return string(plain), nil
}

// IsEnvelope 判断字符串是否为 Encode 格式的密文（不校验口令）
func IsEnvelope(s string) bool {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return false
	}
	headerLen := len(saltHeader) + saltSize
	body := len(data) - headerLen
	return bytes.HasPrefix(data, []byte(saltHeader)) && body >= aes.BlockSize && body%aes.BlockSize == 0
}

// deriveKeyIV OpenSSL EVP_BytesToKey（MD5，1 次迭代）
func deriveKeyIV(passphrase, salt []byte) (key, iv []byte) {
	need := keySize + aes.BlockSize
	derived := make([]byte, 0, need+md5.Size)

	var prev []byte
	for len(derived) < need {
		h := md5.New()
		h.Write(prev)
		h.Write(passphrase)
		h.Write(salt)
		prev = h.Sum(nil)
		derived = append(derived, prev...)
	}

	return derived[:keySize], derived[keySize:need]
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, bool) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, false
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, false
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, false
		}
	}
	return data[:len(data)-n], true
}
