package storage

var pgMigration = []string{
	`CREATE TABLE submission (
id uuid PRIMARY KEY,
target VARCHAR(255) NOT NULL,
title VARCHAR(255) NOT NULL,
url VARCHAR(255) NOT NULL,
submitted_at TIMESTAMP WITH TIME ZONE NOT NULL
)`,
	`CREATE INDEX submission_url ON submission (url)`,
}
