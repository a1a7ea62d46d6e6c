package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/bffhd/pkg/bffherr"
)

const validYAML = `
listens:
  - address: "0.0.0.0"
    port: 59661
tlskeyfile: /etc/bffhd/tls.key
tlscertfile: /etc/bffhd/tls.crt
db_path: /var/lib/bffhd/state
auditlog_path: /var/log/bffhd/audit.log
spacename: lab
machines:
  laser:
    name: Laser Cutter
    privileges:
      disclose: lab.laser.disclose
      read: lab.laser.read
      write: lab.laser.write
      manage: lab.laser.manage
roles:
  members:
    permissions:
      - lab.laser.write
  admins:
    parents: [members]
    permissions:
      - bffh.admin
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bffhd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeFile(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "lab", cfg.SpaceName)
	require.Len(t, cfg.Listens, 1)
	assert.Equal(t, 59661, cfg.Listens[0].Port)
	assert.Contains(t, cfg.Machines, "laser")
	assert.Equal(t, []string{"members"}, cfg.Roles["admins"].Parents)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
	assert.Equal(t, bffherr.KindConfigInvalid, bffherr.KindOf(err))
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := Load(writeFile(t, "not: [valid: yaml"))
	require.Error(t, err)
	assert.Equal(t, bffherr.KindConfigInvalid, bffherr.KindOf(err))
}

func TestLoadRejectsMissingRequiredFields(t *testing.T) {
	_, err := Load(writeFile(t, "spacename: lab\n"))
	require.Error(t, err)
	assert.Equal(t, bffherr.KindConfigInvalid, bffherr.KindOf(err))
}

func TestLoadRejectsIncompleteMachinePrivileges(t *testing.T) {
	bad := `
listens:
  - address: "0.0.0.0"
tlskeyfile: k
tlscertfile: c
db_path: /tmp/db
auditlog_path: /tmp/audit.log
machines:
  laser:
    name: Laser Cutter
    privileges:
      disclose: lab.laser.disclose
`
	_, err := Load(writeFile(t, bad))
	require.Error(t, err)
	assert.Equal(t, bffherr.KindConfigInvalid, bffherr.KindOf(err))
}
