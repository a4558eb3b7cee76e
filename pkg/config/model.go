package config

type (

	// Config конфигурация программы
	Config struct {

		// Описание логирования
		Log struct {

			// Путь к файлу лога
			Path string

			// Имя файла логирования
			Filename string `required:"true" default:"simtemp.log"`

			// Уровень логирования
			Level string `required:"true" default:"warning"`

			// Выводить лог только на консоль
			Console bool `default:"false"`
		}

		// Описываем подключение к базе данных журнала устройства
		Db struct {

			// Тип базы данных (sqlite, mysql и т.п.)
			Type string `default:"sqlite"`

			// Путь к расположению базы данных
			Path string

			// Имя файла базы данных
			Filename string `required:"true" default:"simtemp.sqlite"`

			// Количество дней хранения журнала тревог и изменений атрибутов
			ArchiveDays int `default:"30"`

			// Период очистки журнала до ArchiveDays в минутах
			CleanArchiveInterval int `default:"30"`
		}

		// Обслуживание WEB-сервера
		Http struct {

			// Порт WEB-сервера
			Port uint `required:"true" default:"8080"`

			// Максимальное время блокирующего опроса готовности в секундах
			PollWaitTimeout uint `default:"30"`
		}

		// Описание симулируемого датчика
		Sensor struct {

			// Имя узла устройства (под этим именем устройство видно в /dev)
			Name string `default:"simtemp0"`

			// Список описаний устройств. Аналог device-tree: первый узел с
			// подходящей строкой Compatible переопределяет значения по
			// умолчанию, отсутствующие ключи оставляют их нетронутыми
			Nodes []struct {

				// Строка совместимости вида "производитель,модель"
				Compatible string `required:"true"`

				// Частота замеров в герцах (1..100)
				SamplingHz *uint

				// Порог тревоги в милли-градусах
				ThresholdMc *int

				// Зерно генератора случайного шума
				RngSeed *int64

				// Описание узла
				Description string
			}
		}
	}
)

// CompatibleSimtemp строка совместимости, которую обслуживает эта программа
const CompatibleSimtemp = "nxp,simtemp"
