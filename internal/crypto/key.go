package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LegacyPassphrase 旧版前端硬编码的口令
// 只能用于迁移旧数据，不允许作为正式配置
const LegacyPassphrase = "clave-super-secreta-123"

// RevealCacheSize Reveal 结果缓存的条目数
const RevealCacheSize = 4096

var (
	// ErrPlaceholderPassphrase 口令仍为占位值
	ErrPlaceholderPassphrase = errors.New("obfuscation passphrase is a placeholder and must be replaced")
	// ErrPassphraseTooShort 口令过短
	ErrPassphraseTooShort = errors.New("obfuscation passphrase must be at least 16 characters")
)

// maxEncodeAttempts 编码时为避开旧口令可解的密文最多重新取 salt 的次数
const maxEncodeAttempts = 8

// ErrAmbiguousCiphertext 多次编码的结果都能被旧口令解开
var ErrAmbiguousCiphertext = errors.New("encoded name is also decodable with a legacy passphrase")

// NameState 存储值的解码状态
type NameState int

const (
	// NameCurrent 主口令可解码
	NameCurrent NameState = iota
	// NameLegacy 旧口令可解码，或为未混淆的旧明文
	NameLegacy
	// NameUndecodable OpenSSL 密文但没有任何已配置口令能解开
	NameUndecodable
)

func (s NameState) String() string {
	switch s {
	case NameCurrent:
		return "current"
	case NameLegacy:
		return "legacy"
	case NameUndecodable:
		return "undecodable"
	default:
		return "unknown"
	}
}

// Obfuscator 绑定口令的名称混淆器
// 编码只使用主口令；解码依次尝试主口令和旧口令
// 主口令写出的密文保证不能被任何旧口令解开，两者都能解开时按旧口令处理
// 解码结果按存储值缓存，可并发使用
type Obfuscator struct {
	passphrase string
	fallbacks  []string
	revealed   *lru.Cache[string, revealResult]
	decode     func(ciphertext, passphrase string) (string, error)
}

type revealResult struct {
	plaintext string
	state     NameState
}

// NewObfuscator 创建混淆器
// fallbacks 为迁移期间仍需能解码的旧口令
func NewObfuscator(passphrase string, fallbacks ...string) (*Obfuscator, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	cache, err := lru.New[string, revealResult](RevealCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create reveal cache: %w", err)
	}
	o := &Obfuscator{passphrase: passphrase, revealed: cache, decode: Decode}
	for _, f := range fallbacks {
		if f != "" && f != passphrase {
			o.fallbacks = append(o.fallbacks, f)
		}
	}
	return o, nil
}

// ObfuscateName 写入前编码显示名称
// 结果若能被旧口令解开则换 salt 重试
func (o *Obfuscator) ObfuscateName(plaintext string) (string, error) {
	for attempt := 0; attempt < maxEncodeAttempts; attempt++ {
		encoded, err := Encode(plaintext, o.passphrase)
		if err != nil {
			return "", err
		}
		if _, ok := o.decodeFallback(encoded); !ok {
			return encoded, nil
		}
	}
	return "", ErrAmbiguousCiphertext
}

// DeobfuscateName 读取后解码显示名称（仅主口令）
func (o *Obfuscator) DeobfuscateName(stored string) (string, error) {
	return o.decode(stored, o.passphrase)
}

// Reveal 尽力解码存储值
// 主口令解码成功时 legacy 为 false，其余情况为 true；
// 无法解码时把存储值原样返回
func (o *Obfuscator) Reveal(stored string) (plaintext string, legacy bool) {
	plaintext, state := o.Inspect(stored)
	return plaintext, state != NameCurrent
}

// Inspect 解码存储值并返回其状态
// NameUndecodable 时返回原存储值，调用方不应把它当作明文重新编码
func (o *Obfuscator) Inspect(stored string) (string, NameState) {
	if stored == "" {
		return "", NameCurrent
	}
	if r, ok := o.revealed.Get(stored); ok {
		return r.plaintext, r.state
	}

	r := o.inspect(stored)
	o.revealed.Add(stored, r)
	return r.plaintext, r.state
}

func (o *Obfuscator) inspect(stored string) revealResult {
	if decoded, ok := o.decodeFallback(stored); ok {
		return revealResult{plaintext: decoded, state: NameLegacy}
	}
	if decoded, err := o.DeobfuscateName(stored); err == nil {
		return revealResult{plaintext: decoded, state: NameCurrent}
	}
	if IsEnvelope(stored) {
		return revealResult{plaintext: stored, state: NameUndecodable}
	}
	return revealResult{plaintext: stored, state: NameLegacy}
}

func (o *Obfuscator) decodeFallback(stored string) (string, bool) {
	for _, f := range o.fallbacks {
		if decoded, err := o.decode(stored, f); err == nil {
			return decoded, true
		}
	}
	return "", false
}

// CachedReveals 当前缓存的解码结果数
func (o *Obfuscator) CachedReveals() int {
	return o.revealed.Len()
}

// GeneratePassphrase 生成随机口令（32 字节，Base64 URL 编码）
func GeneratePassphrase() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate passphrase: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ValidatePassphrase 校验配置中的口令
func ValidatePassphrase(passphrase string) error {
	p := strings.TrimSpace(passphrase)
	switch {
	case p == "":
		return ErrEmptyPassphrase
	case p == LegacyPassphrase || strings.EqualFold(p, "CHANGE_ME"):
		return ErrPlaceholderPassphrase
	case len(p) < 16:
		return fmt.Errorf("%w: got %d", ErrPassphraseTooShort, len(p))
	}
	return nil
}
