package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Memory")
	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.StoreDriver != "memory" || c.PaymentCurrency != "NGN" || c.OTPTTL != 5*time.Minute {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if !c.IsDev() {
		t.Fatal("default env should be dev")
	}
}

func TestIsDev(t *testing.T) {
	for env, want := range map[string]bool{"dev": true, "prod": false, "staging": false, "": false} {
		if got := (Config{Env: env}).IsDev(); got != want {
			t.Errorf("IsDev(%q) = %v, want %v", env, got, want)
		}
	}
}

func TestLoad_Rejects(t *testing.T) {
	t.Run("unknown store driver", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "mongo")
		if _, err := Load(); err == nil {
			t.Fatal("expected error")
		}
	})
	for _, env := range []string{"staging", "production"} {
		t.Run(env+" without paystack key", func(t *testing.T) {
			t.Setenv("APP_ENV", env)
			t.Setenv("STORE_DRIVER", "memory")
			t.Setenv("PAYSTACK_SECRET_KEY", "")
			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
	t.Run("prod without paystack key", func(t *testing.T) {
		t.Setenv("APP_ENV", "prod")
		t.Setenv("STORE_DRIVER", "memory")
		t.Setenv("PAYSTACK_SECRET_KEY", "")
		if _, err := Load(); err == nil {
			t.Fatal("expected error")
		}
	})
}
