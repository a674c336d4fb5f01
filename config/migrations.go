package config

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/hmztgr/salama-maintenance-system-sub002/models"
)

// notifyFunctionSQL is the trigger function shared by all mirrored
// tables. It publishes the operation name on the channel bound when the
// trigger was created, which is all the listening stores need; they
// refetch rather than decode payloads.
const notifyFunctionSQL = `
CREATE OR REPLACE FUNCTION notify_table_changed() RETURNS trigger AS $$
BEGIN
	PERFORM pg_notify(TG_ARGV[0], TG_OP);
	RETURN NULL;
END;
$$ LANGUAGE plpgsql`

func Migrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "01082026_create_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.Company{}, &models.Branch{}, &models.Contract{},
					&models.Visit{}, &models.ActivityLog{}, &models.ServiceType{})
			},
		},
		{
			ID: "01082026_add_change_notify_triggers",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.Exec(notifyFunctionSQL).Error; err != nil {
					return err
				}

				channels := map[string]string{
					"visits":    "visits_changed",
					"contracts": "contracts_changed",
					"companies": "companies_changed",
					"branches":  "branches_changed",
				}
				for table, channel := range channels {
					triggerName := table + "_notify_changed"
					if err := tx.Exec("DROP TRIGGER IF EXISTS " + triggerName + " ON " + table).Error; err != nil {
						return err
					}
					if err := tx.Exec("CREATE TRIGGER " + triggerName +
						" AFTER INSERT OR UPDATE OR DELETE ON " + table +
						" FOR EACH STATEMENT EXECUTE FUNCTION notify_table_changed('" + channel + "')").Error; err != nil {
						return err
					}
				}
				return nil
			},
		},
	})
	return m.Migrate()
}
