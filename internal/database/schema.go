package database

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    external_id VARCHAR(128) NOT NULL UNIQUE,
    email VARCHAR(255),
    name VARCHAR(255),
    picture_url VARCHAR(512),
    daily_credits_remaining INT NOT NULL DEFAULT 3,
    daily_credits_refreshed_at TIMESTAMP NULL DEFAULT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS images (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    user_id BIGINT NOT NULL,
    storage_ref VARCHAR(512) NOT NULL,
    prompt TEXT NOT NULL,
    provider_tag VARCHAR(64) NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE KEY uniq_images_storage_ref (storage_ref),
    KEY idx_images_user_created (user_id, created_at),
    FOREIGN KEY (user_id) REFERENCES users(id)
);
`
