package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cuemby/bffhd/pkg/bffherr"
	"github.com/cuemby/bffhd/pkg/value"
)

// CardKeyStore resolves a card's auth-id (recovered from the card's
// token file, step 4 of spec.md §4.8) to its AES authentication key and
// the user it authenticates as. *userstore.Store callers typically wrap
// GetUser and a per-user KV entry to satisfy this.
type CardKeyStore interface {
	CardKey(authID string) (key []byte, userID value.UserID, ok bool, err error)
}

const (
	fabfireAppID = 0x464142
	fabfireMagic = "FABACCESS\x00DESFIRE\x001.0\x00"
	tokenFileLen = 47
)

// wireMessage is the JSON envelope relayed between the server and the
// card reader (spec.md §4.8's step table).
type wireMessage struct {
	Cmd   string `json:"Cmd"`
	Data  string `json:"data,omitempty"`
	MsgID *int   `json:"msg_id,omitempty"`
}

type cardDescriptor struct {
	UID string `json:"uid"`
}

type fabfireStep int

const (
	stepNew fabfireStep = iota
	stepSelectApp
	stepVerifyMagic
	stepGetURN
	stepGetToken
	stepAuthenticate1
	stepAuthenticate2
	stepDone
)

// fabfireMechanism implements the seven-step card challenge/response
// protocol (spec.md §4.8).
type fabfireMechanism struct {
	localURN string
	keys     CardKeyStore

	step fabfireStep

	authID string
	key    []byte
	userID value.UserID

	rndA []byte
	rndB []byte
	iv   []byte // IV for the Authenticate2 decrypt, chained from Authenticate1's ciphertext
}

// NewFabFireFactory returns a Factory for the FABFIRE mechanism, scoped
// to localSpace (the configured space name, spec.md §6 SpaceName) and
// resolving card tokens against keys.
func NewFabFireFactory(localSpace string, keys CardKeyStore) Factory {
	return func() Mechanism {
		return &fabfireMechanism{
			localURN: fmt.Sprintf("urn:fabaccess:lab:%s", localSpace),
			keys:     keys,
		}
	}
}

func (m *fabfireMechanism) Step(incoming []byte) StepResult {
	switch m.step {
	case stepNew:
		return m.stepNewFn(incoming)
	case stepSelectApp:
		return m.stepSelectAppFn(incoming)
	case stepVerifyMagic:
		return m.stepVerifyMagicFn(incoming)
	case stepGetURN:
		return m.stepGetURNFn(incoming)
	case stepGetToken:
		return m.stepGetTokenFn(incoming)
	case stepAuthenticate1:
		return m.stepAuthenticate1Fn(incoming)
	case stepAuthenticate2:
		return m.stepAuthenticate2Fn(incoming)
	default:
		return failWith(bffherr.KindProtocol, "auth: fabfire: step() called after completion", nil)
	}
}

func (m *fabfireMechanism) stepNewFn(incoming []byte) StepResult {
	if incoming == nil {
		return failWith(bffherr.KindParse, "auth: fabfire: missing card descriptor", nil)
	}
	var desc cardDescriptor
	if err := json.Unmarshal(incoming, &desc); err != nil {
		return failWith(bffherr.KindParse, "auth: fabfire: card descriptor", err)
	}

	apdu := selectApplicationAPDU(fabfireAppID)
	out, err := sendPICC(apdu)
	if err != nil {
		return failWith(bffherr.KindInternal, "auth: fabfire: encode", err)
	}
	m.step = stepSelectApp
	return StepResult{State: StateRunning, Outgoing: out}
}

func (m *fabfireMechanism) stepSelectAppFn(incoming []byte) StepResult {
	if _, err := m.readPICCBody(incoming); err != nil {
		return failWith(bffherr.KindProtocol, "auth: fabfire: select_app", err)
	}

	apdu := readDataAPDU(0x01, 0, len(fabfireMagic))
	out, err := sendPICC(apdu)
	if err != nil {
		return failWith(bffherr.KindInternal, "auth: fabfire: encode", err)
	}
	m.step = stepVerifyMagic
	return StepResult{State: StateRunning, Outgoing: out}
}

func (m *fabfireMechanism) stepVerifyMagicFn(incoming []byte) StepResult {
	body, err := m.readPICCBody(incoming)
	if err != nil {
		return failWith(bffherr.KindProtocol, "auth: fabfire: verify_magic", err)
	}
	if string(body) != fabfireMagic {
		return failWith(bffherr.KindProtocol, "auth: fabfire: invalid magic", nil)
	}

	apdu := readDataAPDU(0x02, 0, len(m.localURN))
	out, err := sendPICC(apdu)
	if err != nil {
		return failWith(bffherr.KindInternal, "auth: fabfire: encode", err)
	}
	m.step = stepGetURN
	return StepResult{State: StateRunning, Outgoing: out}
}

func (m *fabfireMechanism) stepGetURNFn(incoming []byte) StepResult {
	body, err := m.readPICCBody(incoming)
	if err != nil {
		return failWith(bffherr.KindProtocol, "auth: fabfire: get_urn", err)
	}
	if string(body) != m.localURN {
		return failWith(bffherr.KindProtocol, fmt.Sprintf("auth: fabfire: urn mismatch: %q", body), nil)
	}

	apdu := readDataAPDU(0x03, 0, tokenFileLen)
	out, err := sendPICC(apdu)
	if err != nil {
		return failWith(bffherr.KindInternal, "auth: fabfire: encode", err)
	}
	m.step = stepGetToken
	return StepResult{State: StateRunning, Outgoing: out}
}

func (m *fabfireMechanism) stepGetTokenFn(incoming []byte) StepResult {
	body, err := m.readPICCBody(incoming)
	if err != nil {
		return failWith(bffherr.KindProtocol, "auth: fabfire: get_token", err)
	}
	authID := strings.TrimRight(string(body), "\x00")

	key, userID, ok, err := m.keys.CardKey(authID)
	if err != nil {
		return failWith(bffherr.KindInternal, "auth: fabfire: card key lookup", err)
	}
	if !ok {
		return failWith(bffherr.KindProtocol, fmt.Sprintf("auth: fabfire: unknown card token %q", authID), nil)
	}
	m.authID = authID
	m.key = key
	m.userID = userID

	apdu := authenticateISOAESAPDU(0x01)
	out, err := sendPICC(apdu)
	if err != nil {
		return failWith(bffherr.KindInternal, "auth: fabfire: encode", err)
	}
	m.step = stepAuthenticate1
	return StepResult{State: StateRunning, Outgoing: out}
}

func (m *fabfireMechanism) stepAuthenticate1Fn(incoming []byte) StepResult {
	rndBEnc, err := m.readPICCBody(incoming)
	if err != nil {
		return failWith(bffherr.KindProtocol, "auth: fabfire: authenticate1", err)
	}
	if len(rndBEnc) != aes.BlockSize {
		return failWith(bffherr.KindProtocol, "auth: fabfire: encrypted rnd_b has wrong length", nil)
	}

	rndB, err := aesCBCDecrypt(m.key, zeroIV(), rndBEnc)
	if err != nil {
		return failWith(bffherr.KindInternal, "auth: fabfire: decrypt rnd_b", err)
	}

	rndA := make([]byte, aes.BlockSize)
	if _, err := rand.Read(rndA); err != nil {
		return failWith(bffherr.KindInternal, "auth: fabfire: rnd_a", err)
	}

	plaintext := append(append([]byte{}, rndA...), rotLeft(rndB, 1)...)
	resp, err := aesCBCEncrypt(m.key, rndBEnc, plaintext)
	if err != nil {
		return failWith(bffherr.KindInternal, "auth: fabfire: encrypt challenge response", err)
	}

	m.rndA = rndA
	m.rndB = rndB
	m.iv = resp[len(resp)-aes.BlockSize:]

	out, err := sendPICC(resp)
	if err != nil {
		return failWith(bffherr.KindInternal, "auth: fabfire: encode", err)
	}
	m.step = stepAuthenticate2
	return StepResult{State: StateRunning, Outgoing: out}
}

func (m *fabfireMechanism) stepAuthenticate2Fn(incoming []byte) StepResult {
	body, err := m.readPICCBody(incoming)
	if err != nil {
		return failWith(bffherr.KindProtocol, "auth: fabfire: authenticate2", err)
	}
	if len(body) != aes.BlockSize {
		return failWith(bffherr.KindProtocol, "auth: fabfire: encrypted confirmation has wrong length", nil)
	}

	got, err := aesCBCDecrypt(m.key, m.iv, body)
	if err != nil {
		return failWith(bffherr.KindInternal, "auth: fabfire: decrypt confirmation", err)
	}

	want := rotLeft(m.rndA, 1)
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return StepResult{State: StateFailed, Err: bffherr.ErrDenied}
	}

	msgID := 4
	out, err := json.Marshal(wireMessage{Cmd: "message", MsgID: &msgID})
	if err != nil {
		return failWith(bffherr.KindInternal, "auth: fabfire: encode confirmation", err)
	}
	m.step = stepDone
	return StepResult{State: StateDone, Outgoing: out, UserID: m.userID}
}

// readPICCBody parses a {Cmd: readPICC, data: <hex APDU response>}
// message and returns its checked body.
func (m *fabfireMechanism) readPICCBody(incoming []byte) ([]byte, error) {
	if incoming == nil {
		return nil, bffherr.New(bffherr.KindParse, "auth: fabfire: missing card response")
	}
	var msg wireMessage
	if err := json.Unmarshal(incoming, &msg); err != nil {
		return nil, bffherr.Wrap(bffherr.KindParse, "auth: fabfire: decode card response", err)
	}
	if msg.Cmd != "readPICC" {
		return nil, bffherr.New(bffherr.KindProtocol, fmt.Sprintf("auth: fabfire: expected readPICC, got %q", msg.Cmd))
	}
	raw, err := hex.DecodeString(msg.Data)
	if err != nil {
		return nil, bffherr.Wrap(bffherr.KindParse, "auth: fabfire: decode APDU hex", err)
	}
	return checkAPDUResponse(raw)
}

func sendPICC(apdu []byte) ([]byte, error) {
	return json.Marshal(wireMessage{Cmd: "sendPICC", Data: hex.EncodeToString(apdu)})
}

func failWith(kind bffherr.Kind, msg string, err error) StepResult {
	if err == nil {
		return StepResult{State: StateFailed, Err: bffherr.New(kind, msg)}
	}
	return StepResult{State: StateFailed, Err: bffherr.Wrap(kind, msg, err)}
}

// --- APDU framing ---
//
// These helpers build the minimal ISO-7816-4 command APDUs this
// protocol needs. They are illustrative framing grounded in the
// original card driver's command shapes, not a full ISO-7816/DESFire
// driver — no such driver exists among the retrieved dependencies.

const (
	insSelectApplication byte = 0x5A
	insReadData          byte = 0xBD
	insAuthenticateISOAES byte = 0xAA
)

func buildAPDU(ins, p1, p2 byte, data []byte) []byte {
	apdu := []byte{0x90, ins, p1, p2, byte(len(data))}
	apdu = append(apdu, data...)
	apdu = append(apdu, 0x00)
	return apdu
}

func selectApplicationAPDU(appID uint32) []byte {
	data := []byte{byte(appID), byte(appID >> 8), byte(appID >> 16)}
	return buildAPDU(insSelectApplication, 0x00, 0x00, data)
}

func readDataAPDU(fileID byte, offset, length int) []byte {
	data := []byte{
		fileID,
		byte(offset), byte(offset >> 8), byte(offset >> 16),
		byte(length), byte(length >> 8), byte(length >> 16),
	}
	return buildAPDU(insReadData, 0x00, 0x00, data)
}

func authenticateISOAESAPDU(keyID byte) []byte {
	return buildAPDU(insAuthenticateISOAES, 0x00, 0x00, []byte{keyID})
}

// checkAPDUResponse splits off the trailing ISO-7816 status word and
// fails on anything but 0x9000 (spec.md §4.8: "Any APDU 'check' failure
// (non-9000 status word) at any step is Failed(Protocol)").
func checkAPDUResponse(resp []byte) ([]byte, error) {
	if len(resp) < 2 {
		return nil, bffherr.New(bffherr.KindProtocol, "auth: fabfire: short APDU response")
	}
	sw1, sw2 := resp[len(resp)-2], resp[len(resp)-1]
	body := resp[:len(resp)-2]
	if sw1 != 0x90 || sw2 != 0x00 {
		return nil, bffherr.New(bffherr.KindProtocol, fmt.Sprintf("auth: fabfire: card status word %02x%02x", sw1, sw2))
	}
	return body, nil
}

// --- crypto ---

func zeroIV() []byte { return make([]byte, aes.BlockSize) }

func aesCBCEncrypt(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(plaintext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("auth: fabfire: plaintext not block-aligned")
	}
	out := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, plaintext)
	return out, nil
}

func aesCBCDecrypt(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("auth: fabfire: ciphertext not block-aligned")
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return out, nil
}

// rotLeft returns b rotated left by n bytes (spec.md §4.8's
// rot_left(RND_B, 1) / rot_left(RND_A, 1)).
func rotLeft(b []byte, n int) []byte {
	if len(b) == 0 {
		return b
	}
	n %= len(b)
	out := make([]byte, len(b))
	copy(out, b[n:])
	copy(out[len(b)-n:], b[:n])
	return out
}
