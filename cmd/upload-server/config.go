package main

import (
	"log/slog"
	"os"
	"strings"
)

type Config struct {
	JWTSecret         string   `env:"JWT_SECRET" env-required:"true"`
	StorageURL        string   `env:"STORAGE_URL" env-default:"memory://"`
	PublicBaseURL     string   `env:"PUBLIC_BASE_URL" env-default:"http://localhost:3000"`
	DatabaseURL       string   `env:"DATABASE_URL" env-default:"memory"`
	MaxUploadBytes    int64    `env:"MAX_UPLOAD_BYTES" env-default:"33554432"`
	AllowedExtensions []string `env:"ALLOWED_EXTENSIONS" env-separator:"," env-default:"doc,docx,odt,rtf,ppt,pptx,odp,xls,xlsx,ods"`
	CaseSensitive     bool     `env:"CASE_SENSITIVE_EXTENSIONS" env-default:"false"`
	LogLevel          string   `env:"LOG_LEVEL" env-default:"info"`
	LogFormat         string   `env:"LOG_FORMAT" env-default:"text"`
	S3                S3Config
}

type S3Config struct {
	Endpoint        string `env:"AWS_S3_ENDPOINT"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	Region          string `env:"AWS_S3_REGION" env-default:"us-east-1"`
	UsePathStyle    bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"false"`
	PublicURL       string `env:"AWS_S3_PUBLIC_URL"`
	PresignSeconds  int    `env:"AWS_S3_PRESIGN_SECONDS" env-default:"3600"`
	CreateBucket    bool   `env:"AWS_S3_CREATE_BUCKET" env-default:"false"`
}

// filesURLPrefix is where the memory and fs stores are served from
func (c Config) filesURLPrefix() string {
	return strings.TrimRight(c.PublicBaseURL, "/") + "/files"
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
