//go:build linux

package audio

import "github.com/gen2brain/malgo"

// Swapped out in tests so device handling can be exercised without hardware.
var (
	malgoInitContext         = malgo.InitContext
	malgoDefaultDeviceConfig = malgo.DefaultDeviceConfig
	malgoInitDevice          = malgo.InitDevice
	malgoContextUninit       = (*malgo.AllocatedContext).Uninit
	malgoDeviceStart         = (*malgo.Device).Start
	malgoDeviceUninit        = (*malgo.Device).Uninit
	malgoCaptureDevices      = func(ctx *malgo.AllocatedContext) ([]malgo.DeviceInfo, error) {
		return ctx.Devices(malgo.Capture)
	}
)
