package auth

import (
	"crypto/aes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/bffhd/pkg/bffherr"
	"github.com/cuemby/bffhd/pkg/value"
)

type fakeCardKeys struct {
	authID string
	key    []byte
	userID value.UserID
}

func (f fakeCardKeys) CardKey(authID string) ([]byte, value.UserID, bool, error) {
	if authID != f.authID {
		return nil, "", false, nil
	}
	return f.key, f.userID, true, nil
}

func newTestCardKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func apduOK(body []byte) []byte {
	return append(append([]byte{}, body...), 0x90, 0x00)
}

func apduFail(body []byte) []byte {
	return append(append([]byte{}, body...), 0x6A, 0x82)
}

func wireMsg(t *testing.T, cmd string, data []byte) []byte {
	t.Helper()
	out, err := json.Marshal(wireMessage{Cmd: cmd, Data: hex.EncodeToString(data)})
	require.NoError(t, err)
	return out
}

func decodeOutgoingData(t *testing.T, out []byte) []byte {
	t.Helper()
	var msg wireMessage
	require.NoError(t, json.Unmarshal(out, &msg))
	data, err := hex.DecodeString(msg.Data)
	require.NoError(t, err)
	return data
}

// runHandshakeUpToAuthenticate2 drives the mechanism through steps 0-5,
// as a correctly behaving card would, and returns the server's
// Authenticate1 challenge-response APDU plus the encrypted rnd_b this test
// sent (the IV for decrypting that response).
func runHandshakeUpToAuthenticate2(t *testing.T, mech Mechanism, key []byte, authID, urn string) (challengeResp []byte, rndB []byte) {
	t.Helper()

	res := mech.Step([]byte(`{"uid":"04AABBCCDD"}`))
	require.Equal(t, StateRunning, res.State)

	res = mech.Step(wireMsg(t, "readPICC", apduOK(nil)))
	require.Equal(t, StateRunning, res.State)

	res = mech.Step(wireMsg(t, "readPICC", apduOK([]byte(fabfireMagic))))
	require.Equal(t, StateRunning, res.State)

	res = mech.Step(wireMsg(t, "readPICC", apduOK([]byte(urn))))
	require.Equal(t, StateRunning, res.State)

	tokenBody := make([]byte, tokenFileLen)
	copy(tokenBody, authID)
	res = mech.Step(wireMsg(t, "readPICC", apduOK(tokenBody)))
	require.Equal(t, StateRunning, res.State)

	rndB = make([]byte, aes.BlockSize)
	_, err := rand.Read(rndB)
	require.NoError(t, err)
	rndBEnc, err := aesCBCEncrypt(key, zeroIV(), rndB)
	require.NoError(t, err)

	res = mech.Step(wireMsg(t, "readPICC", apduOK(rndBEnc)))
	require.Equal(t, StateRunning, res.State)

	return decodeOutgoingData(t, res.Outgoing), rndBEnc
}

func TestFabFireSuccessfulHandshake(t *testing.T) {
	key := newTestCardKey(t)
	authID := "alice"
	urn := "urn:fabaccess:lab:testspace"

	mech := NewFabFireFactory("testspace", fakeCardKeys{authID: authID, key: key, userID: "alice"})()

	resp, rndBEnc := runHandshakeUpToAuthenticate2(t, mech, key, authID, urn)

	plaintext, err := aesCBCDecrypt(key, rndBEnc, resp)
	require.NoError(t, err)
	require.Len(t, plaintext, 2*aes.BlockSize)
	rndA := plaintext[:aes.BlockSize]

	confirmationEnc, err := aesCBCEncrypt(key, resp[len(resp)-aes.BlockSize:], rotLeft(rndA, 1))
	require.NoError(t, err)

	res := mech.Step(wireMsg(t, "readPICC", apduOK(confirmationEnc)))
	require.Equal(t, StateDone, res.State)
	assert.Equal(t, value.UserID("alice"), res.UserID)

	var confirmMsg wireMessage
	require.NoError(t, json.Unmarshal(res.Outgoing, &confirmMsg))
	assert.Equal(t, "message", confirmMsg.Cmd)
	require.NotNil(t, confirmMsg.MsgID)
	assert.Equal(t, 4, *confirmMsg.MsgID)
}

func TestFabFireWrongConfirmationIsDenied(t *testing.T) {
	key := newTestCardKey(t)
	authID := "alice"
	urn := "urn:fabaccess:lab:testspace"

	mech := NewFabFireFactory("testspace", fakeCardKeys{authID: authID, key: key, userID: "alice"})()
	resp, _ := runHandshakeUpToAuthenticate2(t, mech, key, authID, urn)

	garbage := make([]byte, aes.BlockSize)
	wrongEnc, err := aesCBCEncrypt(key, resp[len(resp)-aes.BlockSize:], garbage)
	require.NoError(t, err)

	res := mech.Step(wireMsg(t, "readPICC", apduOK(wrongEnc)))
	assert.Equal(t, StateFailed, res.State)
	assert.True(t, bffherr.Is(res.Err, bffherr.KindDenied))
}

func TestFabFireBadMagicFails(t *testing.T) {
	key := newTestCardKey(t)
	mech := NewFabFireFactory("testspace", fakeCardKeys{authID: "alice", key: key, userID: "alice"})()

	res := mech.Step([]byte(`{"uid":"04AABBCCDD"}`))
	require.Equal(t, StateRunning, res.State)
	res = mech.Step(wireMsg(t, "readPICC", apduOK(nil)))
	require.Equal(t, StateRunning, res.State)

	res = mech.Step(wireMsg(t, "readPICC", apduOK([]byte("not the magic string"))))
	assert.Equal(t, StateFailed, res.State)
	assert.True(t, bffherr.Is(res.Err, bffherr.KindProtocol))
}

func TestFabFireURNMismatchFails(t *testing.T) {
	key := newTestCardKey(t)
	mech := NewFabFireFactory("testspace", fakeCardKeys{authID: "alice", key: key, userID: "alice"})()

	res := mech.Step([]byte(`{"uid":"04AABBCCDD"}`))
	require.Equal(t, StateRunning, res.State)
	res = mech.Step(wireMsg(t, "readPICC", apduOK(nil)))
	require.Equal(t, StateRunning, res.State)
	res = mech.Step(wireMsg(t, "readPICC", apduOK([]byte(fabfireMagic))))
	require.Equal(t, StateRunning, res.State)

	res = mech.Step(wireMsg(t, "readPICC", apduOK([]byte("urn:fabaccess:lab:somewhere-else"))))
	assert.Equal(t, StateFailed, res.State)
	assert.True(t, bffherr.Is(res.Err, bffherr.KindProtocol))
}

func TestFabFireNonOKStatusWordFails(t *testing.T) {
	key := newTestCardKey(t)
	mech := NewFabFireFactory("testspace", fakeCardKeys{authID: "alice", key: key, userID: "alice"})()

	res := mech.Step([]byte(`{"uid":"04AABBCCDD"}`))
	require.Equal(t, StateRunning, res.State)

	res = mech.Step(wireMsg(t, "readPICC", apduFail(nil)))
	assert.Equal(t, StateFailed, res.State)
	assert.True(t, bffherr.Is(res.Err, bffherr.KindProtocol))
}

func TestFabFireUnknownCardTokenFails(t *testing.T) {
	key := newTestCardKey(t)
	urn := "urn:fabaccess:lab:testspace"
	mech := NewFabFireFactory("testspace", fakeCardKeys{authID: "alice", key: key, userID: "alice"})()

	res := mech.Step([]byte(`{"uid":"04AABBCCDD"}`))
	require.Equal(t, StateRunning, res.State)
	res = mech.Step(wireMsg(t, "readPICC", apduOK(nil)))
	require.Equal(t, StateRunning, res.State)
	res = mech.Step(wireMsg(t, "readPICC", apduOK([]byte(fabfireMagic))))
	require.Equal(t, StateRunning, res.State)
	res = mech.Step(wireMsg(t, "readPICC", apduOK([]byte(urn))))
	require.Equal(t, StateRunning, res.State)

	tokenBody := make([]byte, tokenFileLen)
	copy(tokenBody, "someone-else")
	res = mech.Step(wireMsg(t, "readPICC", apduOK(tokenBody)))
	assert.Equal(t, StateFailed, res.State)
	assert.True(t, bffherr.Is(res.Err, bffherr.KindProtocol))
}
