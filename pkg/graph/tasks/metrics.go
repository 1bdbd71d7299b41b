// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

package tasks

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/m365ops/tenantctl/pkg/metrics"
)

var (
	// usersDesc is the descriptor for a metric, which tracks the number of
	// collected users.
	usersDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metrics.Namespace, "", "tenant_users"),
		"A gauge which tracks the number of collected users",
		[]string{"tenant_id"},
		nil,
	)

	// groupsDesc is the descriptor for a metric, which tracks the number of
	// collected groups.
	groupsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metrics.Namespace, "", "tenant_groups"),
		"A gauge which tracks the number of collected groups",
		[]string{"tenant_id"},
		nil,
	)

	// teamsDesc is the descriptor for a metric, which tracks the number of
	// collected teams.
	teamsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metrics.Namespace, "", "tenant_teams"),
		"A gauge which tracks the number of collected teams",
		[]string{"tenant_id"},
		nil,
	)

	// sitesDesc is the descriptor for a metric, which tracks the number of
	// collected SharePoint sites.
	sitesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metrics.Namespace, "", "tenant_sites"),
		"A gauge which tracks the number of collected SharePoint sites",
		[]string{"tenant_id"},
		nil,
	)
)

// init registers the metric descriptors with the [metrics.DefaultCollector].
func init() {
	metrics.DefaultCollector.AddDesc(
		usersDesc,
		groupsDesc,
		teamsDesc,
		sitesDesc,
	)
}

// usersMetric records the number of collected users for the given tenant.
func usersMetric(tenantID string, count int) {
	metric := prometheus.MustNewConstMetric(
		usersDesc,
		prometheus.GaugeValue,
		float64(count),
		tenantID,
	)
	key := metrics.Key(TaskCollectUsers, tenantID)
	metrics.DefaultCollector.AddMetric(key, metric)
}

// groupsMetric records the number of collected groups for the given tenant.
func groupsMetric(tenantID string, count int) {
	metric := prometheus.MustNewConstMetric(
		groupsDesc,
		prometheus.GaugeValue,
		float64(count),
		tenantID,
	)
	key := metrics.Key(TaskCollectGroups, tenantID)
	metrics.DefaultCollector.AddMetric(key, metric)
}

// teamsMetric records the number of collected teams for the given tenant.
func teamsMetric(tenantID string, count int) {
	metric := prometheus.MustNewConstMetric(
		teamsDesc,
		prometheus.GaugeValue,
		float64(count),
		tenantID,
	)
	key := metrics.Key(TaskCollectTeams, tenantID)
	metrics.DefaultCollector.AddMetric(key, metric)
}

// sitesMetric records the number of collected SharePoint sites for the given
// tenant.
func sitesMetric(tenantID string, count int) {
	metric := prometheus.MustNewConstMetric(
		sitesDesc,
		prometheus.GaugeValue,
		float64(count),
		tenantID,
	)
	key := metrics.Key(TaskCollectSites, tenantID)
	metrics.DefaultCollector.AddMetric(key, metric)
}
