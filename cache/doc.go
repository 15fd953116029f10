// Package cache implements the content-addressed disk cache behind gem
// installation. The on-disk layout is <root>/<bucket>-v<N>/<shard>/<entry>,
// with a .gitignore marker at the root. Bucket names carry a version
// suffix: bumping the suffix orphans the old data, which Prune later
// reclaims instead of migrating it. Higher layers address the cache
// through Bucket/Shard/Entry path values and never touch raw paths.
package cache
