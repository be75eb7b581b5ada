package main

import (
	"os"
	"strings"

	"go.mau.fi/whatsmeow/proto/waCompanionReg"
	"go.mau.fi/whatsmeow/store"
	"google.golang.org/protobuf/proto"

	"github.com/mattmezza/wacli/internal/config"
	"github.com/mattmezza/wacli/internal/errs"
)

func main() {
	applyDeviceLabel()
	if err := execute(os.Args[1:]); err != nil {
		os.Exit(errs.ExitCode(err))
	}
}

// applyDeviceLabel customizes the companion device identity shown on the
// phone. It must run before the whatsmeow store is opened for pairing.
func applyDeviceLabel() {
	label := strings.TrimSpace(os.Getenv(config.EnvDeviceLabel))
	platformRaw := strings.TrimSpace(os.Getenv(config.EnvDevicePlatform))
	if platformRaw != "" {
		platform := parsePlatformType(platformRaw)
		store.DeviceProps.PlatformType = platform.Enum()
	}
	if label == "" {
		return
	}
	store.SetOSInfo(label, [3]uint32{0, 1, 0})
	store.BaseClientPayload.UserAgent.Device = proto.String(label)
	store.BaseClientPayload.UserAgent.Manufacturer = proto.String(label)
}

func parsePlatformType(raw string) waCompanionReg.DeviceProps_PlatformType {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if value == "" {
		return waCompanionReg.DeviceProps_CHROME
	}
	if enumValue, ok := waCompanionReg.DeviceProps_PlatformType_value[value]; ok {
		return waCompanionReg.DeviceProps_PlatformType(enumValue)
	}
	return waCompanionReg.DeviceProps_CHROME
}
