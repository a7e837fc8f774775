// Package e2e contains end-to-end tests for gridpilot. The careers workflow runs against a
// live selenium hub, and the deploy pipeline against a Kind cluster.
package e2e
