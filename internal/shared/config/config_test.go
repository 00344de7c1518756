package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SERVICE_NAME", "engine-service")

	cfg := Load()

	if cfg.ServiceName != "engine-service" {
		t.Errorf("ServiceName = %q, want %q", cfg.ServiceName, "engine-service")
	}
	if cfg.HTTPPort != "8082" {
		t.Errorf("HTTPPort = %q, want %q", cfg.HTTPPort, "8082")
	}
	if cfg.MetricsPort != "9098" {
		t.Errorf("MetricsPort = %q, want %q", cfg.MetricsPort, "9098")
	}
	if cfg.MinBetAmount != 50 {
		t.Errorf("MinBetAmount = %d, want 50", cfg.MinBetAmount)
	}
	if cfg.MinDepositAmount != 100 || cfg.MinWithdrawAmount != 100 {
		t.Errorf("min deposit/withdraw = %d/%d, want 100/100", cfg.MinDepositAmount, cfg.MinWithdrawAmount)
	}
	if cfg.TopicDepositConfirmed != "deposit_confirmed" {
		t.Errorf("TopicDepositConfirmed = %q", cfg.TopicDepositConfirmed)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVICE_NAME", "deposit-worker")
	t.Setenv("MIN_BET_AMOUNT", "200")
	t.Setenv("MIN_BET_AMOUNT_BAD", "x") // não usado, só garante isolamento
	t.Setenv("KAFKA_TOPIC_DEPOSIT_CONFIRMED", "deposits_custom")

	cfg := Load()

	if cfg.MinBetAmount != 200 {
		t.Errorf("MinBetAmount = %d, want 200", cfg.MinBetAmount)
	}
	if cfg.TopicDepositConfirmed != "deposits_custom" {
		t.Errorf("TopicDepositConfirmed = %q, want deposits_custom", cfg.TopicDepositConfirmed)
	}
	if cfg.HTTPPort != "" {
		t.Errorf("worker não deve expor HTTP público, HTTPPort = %q", cfg.HTTPPort)
	}
}

func TestGetEnvInt64Invalid(t *testing.T) {
	t.Setenv("MIN_WITHDRAW_AMOUNT", "abc")

	cfg := Load()
	if cfg.MinWithdrawAmount != 100 {
		t.Errorf("valor inválido deve cair no default, got %d", cfg.MinWithdrawAmount)
	}
}
