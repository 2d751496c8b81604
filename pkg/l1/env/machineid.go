package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// AppID salts the machine ID so the raw ID is never published.
const AppID = "ddsbox"

// MachineID retrieves the unique ID identifying the machine.
// It falls back to the host name if the machine has no ID.
func MachineID() string {
	id, err := machineid.ProtectedID(AppID)
	if err == nil {
		return id[:16]
	}
	glog.Warningf("machine id unavailable: %v", err)
	host, _ := os.Hostname()
	return host
}
