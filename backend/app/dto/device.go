package dto

type DeviceRegisterRequest struct {
	DeviceID string `json:"device_id"`
	Serial   string `json:"serial"`
	Model    string `json:"model"`
	Firmware string `json:"firmware"`
}

type DeviceRegisterResponse struct {
	DeviceID    string `json:"device_id"`
	DeviceToken string `json:"device_token"`
}

type RenameRequest struct {
	Serial string `json:"serial"`
	Name   string `json:"name"`
}
