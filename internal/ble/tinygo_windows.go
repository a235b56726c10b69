//go:build windows

package ble

import "tinygo.org/x/bluetooth"

func tinyGoProperties(c bluetooth.DeviceCharacteristic) Property {
	return PropertyFromGATT(c.Properties())
}

func tinyGoWriteAcked(c bluetooth.DeviceCharacteristic, data []byte) error {
	_, err := c.Write(data)
	return err
}
