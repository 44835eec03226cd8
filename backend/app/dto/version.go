package dto

type GameVersionRequest struct {
	PackageName string `json:"package_name"`
	Version     string `json:"version"`
	Label       string `json:"label"`
	APKURL      string `json:"apk_url"`
	Signature   string `json:"signature"`
	Notes       string `json:"notes"`
	Channel     string `json:"channel"`
}

type FirmwareVersionRequest struct {
	Model      string `json:"model"`
	Version    string `json:"version"`
	ArchiveURL string `json:"archive_url"`
	Signature  string `json:"signature"`
	Notes      string `json:"notes"`
}
