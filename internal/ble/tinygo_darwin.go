//go:build darwin

package ble

import "tinygo.org/x/bluetooth"

// CoreBluetooth does not surface properties through tinygo.
func tinyGoProperties(bluetooth.DeviceCharacteristic) Property { return 0 }

func tinyGoWriteAcked(c bluetooth.DeviceCharacteristic, data []byte) error {
	_, err := c.Write(data)
	return err
}
