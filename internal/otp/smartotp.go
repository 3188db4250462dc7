// Package otp implements SmartOTP, the one-time-password scheme the CLI
// uses as a second factor before any volume operation (§4.4).
package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/deploymenttheory/myfs/internal/myfserr"
)

const (
	epochWindow  = 7200 // 2 hours, in seconds
	modulus      = 100000000
	challengeLen = 4
)

// DefaultTimeLimit is the default window within which VerifyOTP accepts a
// generated OTP, mirroring the original's 20-second default.
const DefaultTimeLimit = 20 * time.Second

// GenerateChallenge returns a random 4-digit string with digits 1-9 (never
// 0, since each digit multiplies the corresponding delta digit).
func GenerateChallenge() (string, error) {
	var b strings.Builder
	for i := 0; i < challengeLen; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(9))
		if err != nil {
			return "", myfserr.Wrap(myfserr.KindCryptoError, "generating OTP challenge", err)
		}
		b.WriteString(strconv.FormatInt(n.Int64()+1, 10))
	}
	return b.String(), nil
}

func secondsSinceLastEvenHour(now time.Time) int {
	return int(now.Unix() % epochWindow)
}

// hashPrefix returns the first 8 decimal digits of SHA-256(challenge)
// interpreted as a big decimal integer.
func hashPrefix(challenge string) (int, error) {
	sum := sha256.Sum256([]byte(challenge))
	n := new(big.Int).SetBytes(sum[:])
	decimal := n.String()
	if len(decimal) < 8 {
		decimal = strings.Repeat("0", 8-len(decimal)) + decimal
	}
	prefix, err := strconv.Atoi(decimal[:8])
	if err != nil {
		return 0, myfserr.Wrap(myfserr.KindCryptoError, "parsing OTP hash prefix", err)
	}
	return prefix, nil
}

func modPositive(a, b int) int {
	r := a % b
	if r < 0 {
		r += b
	}
	return r
}

// MakeOTP produces the OTP for challenge, valid around the current time.
func MakeOTP(challenge string) (string, error) {
	return makeOTPAt(challenge, time.Now())
}

func makeOTPAt(challenge string, now time.Time) (string, error) {
	if len(challenge) != challengeLen {
		return "", myfserr.New(myfserr.KindCryptoError, "OTP challenge must be 4 digits")
	}

	delta := fmt.Sprintf("%04d", secondsSinceLastEvenHour(now))

	var value strings.Builder
	for i := 0; i < challengeLen; i++ {
		d := int(delta[i] - '0')
		x := int(challenge[i] - '0')
		value.WriteString(fmt.Sprintf("%02d", d*x))
	}

	reversed := reverse(value.String())
	reversedInt, err := strconv.Atoi(reversed)
	if err != nil {
		return "", myfserr.Wrap(myfserr.KindCryptoError, "parsing OTP intermediate value", err)
	}

	hashPre, err := hashPrefix(challenge)
	if err != nil {
		return "", err
	}

	result := modPositive(reversedInt+hashPre, modulus)
	return fmt.Sprintf("%08d", result), nil
}

// VerifyOTP reports whether otp was generated for challenge within
// timeLimit of now.
func VerifyOTP(otpValue, challenge string, timeLimit time.Duration) (bool, error) {
	return verifyOTPAt(otpValue, challenge, timeLimit, time.Now())
}

func verifyOTPAt(otpValue, challenge string, timeLimit time.Duration, now time.Time) (bool, error) {
	if len(challenge) != challengeLen {
		return false, myfserr.New(myfserr.KindCryptoError, "OTP challenge must be 4 digits")
	}
	otpInt, err := strconv.Atoi(otpValue)
	if err != nil {
		return false, myfserr.New(myfserr.KindCryptoError, "OTP must be numeric")
	}

	hashPre, err := hashPrefix(challenge)
	if err != nil {
		return false, err
	}

	unshifted := modPositive(otpInt-hashPre, modulus)
	padded := fmt.Sprintf("%08d", unshifted)
	reversed := reverse(padded)

	var genTime strings.Builder
	for i := 0; i < challengeLen; i++ {
		pair := reversed[2*i : 2*i+2]
		part, err := strconv.Atoi(pair)
		if err != nil {
			return false, myfserr.New(myfserr.KindCryptoError, "malformed OTP payload")
		}
		x := int(challenge[i] - '0')
		if x == 0 {
			return false, myfserr.New(myfserr.KindCryptoError, "OTP challenge digit cannot be zero")
		}
		genTime.WriteString(strconv.Itoa(part / x))
	}
	otpGenerationTime, err := strconv.Atoi(genTime.String())
	if err != nil {
		return false, myfserr.New(myfserr.KindCryptoError, "malformed OTP generation time")
	}

	seconds := secondsSinceLastEvenHour(now)
	diff := seconds - otpGenerationTime
	if diff < 0 {
		diff = -diff
	}
	return diff < int(timeLimit.Seconds()), nil
}

func reverse(s string) string {
	r := []byte(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
