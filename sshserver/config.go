package sshserver

// Config defines SSH server settings.
type Config struct {
	Addr        string
	HostKeyPath string
	// UploadDir is the directory file fields may read images from. Empty
	// disables image analysis over SSH.
	UploadDir string
}
