package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// 等级称号阈值
const ExpertProgressThreshold = 70
