package store

// SQL query constants organized by entity.
// All SQL lives here — PostgresStore methods reference these constants.

// Product result queries.
const (
	queryUpsertProductResult = `
		INSERT INTO product_results (
			product_id, shop_id, hour_bucket, product_url, price, is_available, timestamp, created_at
		) VALUES (
			@product_id, @shop_id, @hour_bucket, @product_url, @price, @is_available, @timestamp, now()
		)
		ON CONFLICT (product_id, shop_id, hour_bucket) DO UPDATE SET
			product_url  = EXCLUDED.product_url,
			price        = EXCLUDED.price,
			is_available = EXCLUDED.is_available,
			timestamp    = EXCLUDED.timestamp
		RETURNING created_at`

	queryBestOfferForProduct = `
		SELECT product_id, shop_id, hour_bucket, product_url, price, is_available, timestamp, created_at
		FROM product_results
		WHERE product_id = $1
			AND hour_bucket = $2
			AND is_available = true
			AND price IS NOT NULL
		ORDER BY price ASC, timestamp DESC
		LIMIT 1`

	queryBestOffersForProducts = `
		SELECT DISTINCT ON (product_id) product_id, shop_id, hour_bucket, product_url, price, is_available, timestamp, created_at
		FROM product_results
		WHERE product_id = ANY($1)
			AND hour_bucket = $2
			AND is_available = true
			AND price IS NOT NULL
		ORDER BY product_id, price ASC, timestamp DESC`

	queryDeleteExpiredResults = `DELETE FROM product_results WHERE created_at < now() - ($1 * interval '1 second')`
)

// Notification-state queries.
const (
	queryPreloadNotificationState = `
		SELECT user_id, product_id, shop_id, last_notified, last_price, was_available
		FROM notification_states
		WHERE product_id = ANY($1)`

	queryUpsertNotificationState = `
		INSERT INTO notification_states (
			user_id, product_id, shop_id, last_notified, last_price, was_available
		) VALUES (
			@user_id, @product_id, @shop_id, @last_notified, @last_price, @was_available
		)
		ON CONFLICT (user_id, product_id, shop_id) DO UPDATE SET
			last_notified = EXCLUDED.last_notified,
			last_price    = EXCLUDED.last_price,
			was_available = EXCLUDED.was_available`
)

// Watch / notification-target queries.
const (
	queryGetActiveWatchersByProductIDs = `
		SELECT user_id, product_id, max_price, is_active
		FROM user_watch_entries
		WHERE product_id = ANY($1) AND is_active = true`

	queryGetNotificationTargetsByUserIDs = `
		SELECT user_id, channel, channel_target
		FROM notification_targets
		WHERE user_id = ANY($1)`
)

// Notification audit queries.
const (
	queryCreateNotification = `
		INSERT INTO notifications (user_id, status, payload, deliveries, created_at)
		VALUES (@user_id, @status, @payload, @deliveries, now())
		RETURNING id`

	queryUpdateNotificationStatus = `UPDATE notifications SET status = $2 WHERE id = $1`

	queryAppendNotificationDelivery = `
		UPDATE notifications
		SET deliveries = deliveries || $2::jsonb
		WHERE id = $1`

	queryDeleteExpiredNotifications = `DELETE FROM notifications WHERE created_at < now() - ($1 * interval '1 second')`

	queryListNotificationsByStatus = `
		SELECT id, user_id, status, payload, deliveries, created_at
		FROM notifications
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2`

	queryHasRecentSuccessfulDelivery = `
		SELECT EXISTS(
			SELECT 1
			FROM notifications, jsonb_array_elements(deliveries) AS d
			WHERE user_id = $1
				AND payload ->> 'productId' = $2
				AND payload ->> 'shopId' = $3
				AND d ->> 'channel' = $4
				AND d ->> 'status' = 'sent'
				AND created_at > now() - ($5 * interval '1 second')
		)`
)

// Scheduler queries.
const (
	queryInsertJobRun = `
		INSERT INTO job_runs (job_name, started_at, status)
		VALUES ($1, now(), 'running')
		RETURNING id`

	queryCompleteJobRun = `
		UPDATE job_runs SET
			completed_at       = now(),
			status             = $2,
			error_text         = $3,
			shops_processed    = $4,
			products_scraped   = $5,
			notifications_sent = $6
		WHERE id = $1`

	queryListLatestJobRuns = `
		SELECT id, job_name, started_at, completed_at, status, COALESCE(error_text, ''),
			shops_processed, products_scraped, notifications_sent
		FROM job_runs
		ORDER BY started_at DESC
		LIMIT $1`

	queryRecoverStaleJobRuns = `
		UPDATE job_runs SET
			status = 'crashed',
			completed_at = now(),
			error_text = 'recovered: exceeded max run duration without completing'
		WHERE status = 'running' AND started_at < now() - ($1 * interval '1 second')`

	queryAcquireSchedulerLock = `
		INSERT INTO scheduler_locks (job_name, holder, expires_at)
		VALUES ($1, $2, now() + ($3 * interval '1 second'))
		ON CONFLICT (job_name) DO UPDATE SET
			holder     = EXCLUDED.holder,
			expires_at = EXCLUDED.expires_at
		WHERE scheduler_locks.expires_at < now()`

	queryReleaseSchedulerLock = `DELETE FROM scheduler_locks WHERE job_name = $1 AND holder = $2`
)

// System-state queries.
const (
	queryPendingNotificationsCount = `SELECT COUNT(*) FROM notifications WHERE status IN ('pending', 'sending')`
	queryResultRowsTotal           = `SELECT COUNT(*) FROM product_results`
	queryLastCycleAt               = `SELECT COALESCE(MAX(completed_at), to_timestamp(0)) FROM job_runs WHERE status = 'succeeded'`
)
