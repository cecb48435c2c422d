package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

const (
	MimeImage = "image/"
	MimeXLSX  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

const (
	MaxPhotoSize      = 5 << 20
	ProfilePhotoDir   = "profile-pictures"
	MinPasswordLength = 6
	MaxScore          = 100
)
